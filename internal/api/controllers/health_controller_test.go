package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct {
	err error
}

func (s stubPinger) PingContext(context.Context) error {
	return s.err
}

func TestHealth(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		want   int
		status string
	}{
		{"database up", nil, http.StatusOK, "success"},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthController(stubPinger{err: tc.err}).Health)

			w := do(r, http.MethodGet, "/health", nil, nil)
			assert.Equal(t, tc.want, w.Code)
			assert.Equal(t, tc.status, decode(t, w).Status)
		})
	}
}
