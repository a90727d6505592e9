package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackPath(t *testing.T) {
	testCases := []struct {
		name        string
		callbackURL string
		want        string
	}{
		{name: "空地址", callbackURL: "", want: "/callback/device2"},
		{name: "只有根路径", callbackURL: "http://127.0.0.1:5433/", want: "/callback/device2"},
		{name: "普通路径", callbackURL: "http://127.0.0.1:5433/callback", want: "/callback"},
		{name: "去掉末尾斜杠", callbackURL: "http://127.0.0.1:5433/gewe/cb/", want: "/gewe/cb"},
		{name: "忽略查询参数", callbackURL: "http://127.0.0.1:5433/cb?x=1", want: "/cb"},
		{name: "无法解析", callbackURL: "http://[::1", want: "/callback/device2"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CallbackPath("device2", tc.callbackURL))
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "******", MaskSecret("secret"))
	assert.Equal(t, "abcd***hijk", MaskSecret("abcdefghijk"))
}
