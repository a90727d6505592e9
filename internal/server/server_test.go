package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/johnqing-424/WeChat-Gewe/internal/callback"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/device"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	queuemocks "github.com/johnqing-424/WeChat-Gewe/internal/queue/mocks"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository/dao"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixedIDGenerator struct{}

func (fixedIDGenerator) NextID() (uint64, error) {
	return 1, nil
}

func newTestServer(t *testing.T, ctrl *gomock.Controller, cfg config.BackendConfig) (*Server, *queuemocks.MockDispatcher) {
	s, dispatcher, err := buildServer(t, ctrl, cfg)
	require.NoError(t, err)
	return s, dispatcher
}

func buildServer(t *testing.T, ctrl *gomock.Controller, cfg config.BackendConfig) (*Server, *queuemocks.MockDispatcher, error) {
	gin.SetMode(gin.TestMode)
	registry, err := device.NewRegistry(map[string]config.DeviceConfig{
		"default": {
			BaseURL: "http://api.geweapi.com/gewe/v2/api",
			AppID:   "wx_default",
			Token:   "abcdefgh12345678",
		},
		"device2": {
			Name:        "私有设备",
			BaseURL:     "http://192.168.1.10:2531/v2/api",
			DownloadURL: "http://192.168.1.10:2532/download",
			CallbackURL: "http://192.168.1.2:5433/callback/private",
			AppID:       "wx_device2",
			Token:       "device2-token-0000",
		},
	})
	require.NoError(t, err)

	dispatcher := queuemocks.NewMockDispatcher(ctrl)
	repo := repository.NewCallbackLogRepository(dao.NewMemoryCallbackLogDAO(time.Minute), fixedIDGenerator{})
	svc := callback.NewService(registry, callback.NewLocalDeduplicator(time.Minute), repo, dispatcher, nil)
	s, err := New(cfg, registry, dispatcher, callback.NewHandler(svc, nil), nil)
	return s, dispatcher, err
}

func adminConfig() config.BackendConfig {
	cfg := config.Default().Backend
	cfg.EnableAdmin = true
	return cfg
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, nil)
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)
	return recorder
}

func TestServer_Health(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, dispatcher := newTestServer(t, ctrl, config.Default().Backend)
	dispatcher.EXPECT().Mode().Return(config.QueueTypeSimple)

	recorder := doRequest(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "simple", body["queue"])
	assert.Equal(t, float64(2), body["devices"])
}

func TestServer_Metrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, _ := newTestServer(t, ctrl, config.Default().Backend)

	recorder := doRequest(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestServer_CallbackRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, _ := newTestServer(t, ctrl, config.Default().Backend)

	paths := map[string]bool{}
	for _, r := range s.engine.Routes() {
		if r.Method == http.MethodPost {
			paths[r.Path] = true
		}
	}
	assert.Equal(t, map[string]bool{"/callback/default": true, "/callback/private": true}, paths)
}

func TestServer_Docs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("开启文档", func(t *testing.T) {
		s, _ := newTestServer(t, ctrl, adminConfig())
		recorder := doRequest(t, s, http.MethodGet, "/docs")
		require.Equal(t, http.StatusOK, recorder.Code)

		var doc openAPIDoc
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &doc))
		assert.Equal(t, openAPIVersion, doc.OpenAPI)
		assert.Contains(t, doc.Paths, "/health")
		assert.Contains(t, doc.Paths["/callback/private"], "post")
		op := doc.Paths["/admin/devices/{id}"]["get"]
		require.Len(t, op.Parameters, 1)
		assert.Equal(t, "id", op.Parameters[0].Name)
	})

	t.Run("关闭文档", func(t *testing.T) {
		cfg := config.Default().Backend
		cfg.DocsURL = ""
		s, _ := newTestServer(t, ctrl, cfg)
		recorder := doRequest(t, s, http.MethodGet, "/docs")
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestServer_AdminDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, _ := newTestServer(t, ctrl, config.Default().Backend)

	recorder := doRequest(t, s, http.MethodGet, "/admin/devices")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestServer_AdminDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, _ := newTestServer(t, ctrl, adminConfig())

	testCases := []struct {
		name     string
		path     string
		wantCode int
		wantIDs  []string
	}{
		{
			name:     "全部设备",
			path:     "/admin/devices",
			wantCode: http.StatusOK,
			wantIDs:  []string{"default", "device2"},
		},
		{
			name:     "按 appid 查找",
			path:     "/admin/devices?app_id=wx_device2",
			wantCode: http.StatusOK,
			wantIDs:  []string{"device2"},
		},
		{
			name:     "appid 不存在",
			path:     "/admin/devices?app_id=wx_unknown",
			wantCode: http.StatusOK,
			wantIDs:  []string{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := doRequest(t, s, http.MethodGet, tc.path)
			require.Equal(t, tc.wantCode, recorder.Code)
			var body struct {
				Devices []DeviceVO `json:"devices"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			ids := make([]string, 0, len(body.Devices))
			for _, d := range body.Devices {
				ids = append(ids, d.ID)
				assert.NotContains(t, d.Token, "token")
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestServer_AdminDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, _ := newTestServer(t, ctrl, adminConfig())

	recorder := doRequest(t, s, http.MethodGet, "/admin/devices/device2")
	require.Equal(t, http.StatusOK, recorder.Code)
	var vo DeviceVO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &vo))
	assert.Equal(t, DeviceVO{
		ID:           "device2",
		Name:         "私有设备",
		BaseURL:      "http://192.168.1.10:2531/v2/api",
		DownloadURL:  "http://192.168.1.10:2532/download",
		CallbackURL:  "http://192.168.1.2:5433/callback/private",
		CallbackPath: "/callback/private",
		AppID:        "wx_device2",
		Token:        domain.MaskSecret("device2-token-0000"),
		Mode:         "gewe",
	}, vo)

	recorder = doRequest(t, s, http.MethodGet, "/admin/devices/unknown")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestServer_AdminTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s, dispatcher := newTestServer(t, ctrl, adminConfig())

	dispatcher.EXPECT().Status(gomock.Any(), "task-1").Return(domain.TaskResult{
		TaskID:   "task-1",
		Name:     domain.TaskNameCallback,
		Status:   domain.TaskStatusSucceeded,
		Attempts: 1,
	}, nil)
	dispatcher.EXPECT().Status(gomock.Any(), "task-2").Return(domain.TaskResult{}, errs.ErrTaskNotFound)
	dispatcher.EXPECT().Status(gomock.Any(), "task-3").Return(domain.TaskResult{}, context.DeadlineExceeded)

	recorder := doRequest(t, s, http.MethodGet, "/admin/tasks/task-1")
	require.Equal(t, http.StatusOK, recorder.Code)
	var res domain.TaskResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &res))
	assert.Equal(t, domain.TaskStatusSucceeded, res.Status)

	assert.Equal(t, http.StatusNotFound, doRequest(t, s, http.MethodGet, "/admin/tasks/task-2").Code)
	assert.Equal(t, http.StatusInternalServerError, doRequest(t, s, http.MethodGet, "/admin/tasks/task-3").Code)
}

func TestServer_CORS(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	cfg := config.Default().Backend
	cfg.CORSOrigins = []string{"http://localhost:3000"}
	s, _ := newTestServer(t, ctrl, cfg)

	req, err := http.NewRequest(http.MethodOptions, "/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)
	assert.Equal(t, "http://localhost:3000", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfg *config.BackendConfig)
	}{
		{
			name: "跨域来源缺少协议",
			mutate: func(cfg *config.BackendConfig) {
				cfg.CORSOrigins = []string{"localhost:3000"}
			},
		},
		{
			name: "文档地址与健康检查重复",
			mutate: func(cfg *config.BackendConfig) {
				cfg.DocsURL = config.PathHealth
			},
		},
		{
			name: "文档地址与指标重复",
			mutate: func(cfg *config.BackendConfig) {
				cfg.DocsURL = config.PathMetrics
			},
		},
		{
			name: "文档地址与管理接口重复",
			mutate: func(cfg *config.BackendConfig) {
				cfg.EnableAdmin = true
				cfg.DocsURL = config.PathAdminDevices
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			cfg := config.Default().Backend
			tc.mutate(&cfg)

			var err error
			assert.NotPanics(t, func() {
				_, _, err = buildServer(t, ctrl, cfg)
			})
			assert.ErrorIs(t, err, errs.ErrInvalidConfig)
		})
	}
}

func TestServer_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := config.Default().Backend
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	s, dispatcher := newTestServer(t, ctrl, cfg)
	dispatcher.EXPECT().Mode().Return(config.QueueTypeSimple).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.Addr() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("服务没有退出")
	}
}
