package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository/dao"
	daomocks "github.com/johnqing-424/WeChat-Gewe/internal/repository/dao/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixedIDGenerator struct {
	id  uint64
	err error
}

func (g fixedIDGenerator) NextID() (uint64, error) {
	return g.id, g.err
}

func TestCallbackLogRepository_Create(t *testing.T) {
	testCases := []struct {
		name    string
		mock    func(ctrl *gomock.Controller) dao.CallbackLogDAO
		idGen   IDGenerator
		want    domain.CallbackLog
		wantErr error
	}{
		{
			name: "创建成功",
			mock: func(ctrl *gomock.Controller) dao.CallbackLogDAO {
				d := daomocks.NewMockCallbackLogDAO(ctrl)
				d.EXPECT().Insert(gomock.Any(), dao.CallbackLog{
					ID:       42,
					DeviceID: "default",
					Digest:   "abc",
					Payload:  []byte(`{}`),
					TaskID:   "task-1",
					Status:   "received",
				}).Return(nil)
				return d
			},
			idGen: fixedIDGenerator{id: 42},
			want: domain.CallbackLog{
				ID:       42,
				DeviceID: "default",
				Digest:   "abc",
				Payload:  []byte(`{}`),
				TaskID:   "task-1",
				Status:   domain.CallbackLogStatusReceived,
			},
		},
		{
			name: "ID生成失败",
			mock: func(ctrl *gomock.Controller) dao.CallbackLogDAO {
				return daomocks.NewMockCallbackLogDAO(ctrl)
			},
			idGen:   fixedIDGenerator{err: errors.New("over the time limit")},
			wantErr: errs.ErrIDGenerateFailed,
		},
		{
			name: "写入失败",
			mock: func(ctrl *gomock.Controller) dao.CallbackLogDAO {
				d := daomocks.NewMockCallbackLogDAO(ctrl)
				d.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errs.ErrUnsupportedDatabase)
				return d
			},
			idGen:   fixedIDGenerator{id: 42},
			wantErr: errs.ErrUnsupportedDatabase,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewCallbackLogRepository(tc.mock(ctrl), tc.idGen)
			got, err := repo.Create(context.Background(), domain.CallbackLog{
				DeviceID: "default",
				Digest:   "abc",
				Payload:  []byte(`{}`),
				TaskID:   "task-1",
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCallbackLogRepository_FindByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := daomocks.NewMockCallbackLogDAO(ctrl)
	d.EXPECT().FindByID(gomock.Any(), uint64(7)).Return(dao.CallbackLog{
		ID:       7,
		DeviceID: "device2",
		Status:   "processed",
		Ctime:    100,
		Utime:    200,
	}, nil)
	d.EXPECT().UpdateStatus(gomock.Any(), uint64(7), "failed").Return(nil)

	repo := NewCallbackLogRepository(d, fixedIDGenerator{})
	got, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackLogStatusProcessed, got.Status)
	assert.Equal(t, "device2", got.DeviceID)
	assert.Equal(t, int64(200), got.Utime)

	assert.NoError(t, repo.UpdateStatus(context.Background(), 7, domain.CallbackLogStatusFailed))
}
