package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/response"
	"github.com/tacss32/dalitmurasu-sub000/internal/testutil"
)

const articleBody = "<p>one two three four five</p><p>six seven</p>"

func getContent(t *testing.T, tc *testContext, userID, contentID int64, query string) dto.ContentAccess {
	t.Helper()

	w := performRequest(tc.router(userID), http.MethodGet, fmt.Sprintf("/api/v1/contents/%d%s", contentID, query), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)

	var access dto.ContentAccess
	decodeData(t, resp, &access)
	return access
}

func TestContentHandler_Public(t *testing.T) {
	ctx, cleanup := setupHandlers(t)
	defer cleanup()

	content := testutil.TestContent(t, ctx.DB, model.VisibilityPublic, 0, articleBody)

	access := getContent(t, ctx, 0, content.ID, "")
	assert.True(t, access.Full)
	assert.Equal(t, articleBody, access.Body)
	assert.Equal(t, 1, access.ViewCount)
}

func TestContentHandler_AnonymousPreview(t *testing.T) {
	ctx, cleanup := setupHandlers(t)
	defer cleanup()

	content := testutil.TestContent(t, ctx.DB, model.VisibilitySubscribers, 3, articleBody)

	access := getContent(t, ctx, 0, content.ID, "?words=2")
	assert.False(t, access.Full)
	assert.Empty(t, access.Body)
	assert.Equal(t, "one two...", access.Preview)
	assert.Equal(t, dto.SignalLoginRequired, access.Signal)
}

func TestContentHandler_FreeViewsThenPaywall(t *testing.T) {
	ctx, cleanup := setupHandlers(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)
	content := testutil.TestContent(t, ctx.DB, model.VisibilitySubscribers, 1, articleBody)

	first := getContent(t, ctx, user.ID, content.ID, "")
	assert.True(t, first.Full)
	require.NotNil(t, first.FreeViews)
	assert.Equal(t, 0, *first.FreeViews)

	second := getContent(t, ctx, user.ID, content.ID, "")
	assert.False(t, second.Full)
	assert.Equal(t, dto.SignalSubscriptionRequired, second.Signal)
	assert.Equal(t, "one two three four five six seven", second.Preview)
}

func TestContentHandler_Subscriber(t *testing.T) {
	ctx, cleanup := setupHandlers(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)
	plan := testutil.TestPlan(t, ctx.DB, 49900, 30)
	now := time.Now().UTC()
	testutil.TestPayment(t, ctx.DB, user.ID, plan, testutil.WithActiveUntil(now.AddDate(0, 0, -1), now.AddDate(0, 0, 29)))
	content := testutil.TestContent(t, ctx.DB, model.VisibilitySubscribers, 0, articleBody)

	access := getContent(t, ctx, user.ID, content.ID, "")
	assert.True(t, access.Full)
	assert.Nil(t, access.FreeViews)
}

func TestContentHandler_InvalidParams(t *testing.T) {
	ctx, cleanup := setupHandlers(t)
	defer cleanup()

	content := testutil.TestContent(t, ctx.DB, model.VisibilityPublic, 0, articleBody)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"bad id", "/api/v1/contents/abc", response.CodeParamError},
		{"bad words", fmt.Sprintf("/api/v1/contents/%d?words=many", content.ID), response.CodeParamError},
		{"not found", "/api/v1/contents/99999", response.CodeResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(ctx.router(0), http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.code, parseResponse(t, w).Code)
		})
	}
}
