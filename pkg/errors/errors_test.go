package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: chat 10", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: not a participant", ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: empty member list", ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: contact exists", ErrConflict), http.StatusConflict},
		{ErrInvalidToken, http.StatusUnauthorized},
		{ErrRateLimited, http.StatusTooManyRequests},
		{NewAPIError("teapot", http.StatusTeapot), http.StatusTeapot},
		{New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatusFromError(tc.err), tc.err.Error())
	}
}
