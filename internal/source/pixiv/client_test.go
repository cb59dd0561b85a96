package pixiv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func listingPage(ids []int64, nextURL string) IllustsResponse {
	page := IllustsResponse{NextURL: nextURL}
	for _, id := range ids {
		page.Illusts = append(page.Illusts, Illust{
			ID:        id,
			Title:     fmt.Sprintf("work %d", id),
			PageCount: 1,
			User:      IllustUser{ID: 7, Name: "author"},
			Tags:      []IllustTag{{Name: "tag-a"}},
			MetaSinglePage: MetaSinglePage{
				OriginalImageURL: fmt.Sprintf("https://i.pximg.net/img/%d_p0.png", id),
			},
		})
	}
	return page
}

func TestTraversal_WalksAllPagesOnce(t *testing.T) {
	var calls atomic.Int32

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/user/illusts", r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		n := calls.Add(1)
		var page IllustsResponse
		switch n {
		case 1:
			require.Equal(t, "7", r.URL.Query().Get("user_id"))
			page = listingPage([]int64{1, 2}, srv.URL+"/v1/user/illusts?user_id=7&offset=2")
		case 2:
			require.Equal(t, "2", r.URL.Query().Get("offset"))
			page = listingPage([]int64{3}, srv.URL+"/v1/user/illusts?user_id=7&offset=3")
		case 3:
			require.Equal(t, "3", r.URL.Query().Get("offset"))
			page = listingPage([]int64{4}, "")
		default:
			t.Errorf("unexpected page request %d", n)
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), Config{BaseURL: srv.URL}, testLogger())
	client.accessToken = "token-1"

	traversal := client.Illusts(7)

	var ids []int64
	for {
		posts, err := traversal.Next(context.Background())
		require.NoError(t, err)
		if posts == nil {
			break
		}
		for _, p := range posts {
			ids = append(ids, p.ID)
		}
	}

	require.Equal(t, []int64{1, 2, 3, 4}, ids, "posts flatten in page order")
	require.EqualValues(t, 3, calls.Load(), "cursor-less page ends the walk with no extra request")

	// Exhausted traversals stay exhausted.
	posts, err := traversal.Next(context.Background())
	require.NoError(t, err)
	require.Nil(t, posts)
	require.EqualValues(t, 3, calls.Load())
}

func TestTraversal_EmptyFirstPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		require.NoError(t, json.NewEncoder(w).Encode(IllustsResponse{}))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), Config{BaseURL: srv.URL}, testLogger())

	posts, err := client.Illusts(7).Next(context.Background())
	require.NoError(t, err)
	require.Nil(t, posts)
	require.EqualValues(t, 1, calls.Load())
}

func TestTransform_MultiPagePostExpandsInOrder(t *testing.T) {
	il := Illust{
		ID:        9,
		Title:     "triptych",
		Caption:   "three panels",
		PageCount: 3,
		User:      IllustUser{Name: "author"},
		Tags:      []IllustTag{{Name: "a"}, {Name: "b"}},
		MetaPages: []MetaPage{
			{ImageURLs: PageImageURLs{Original: "https://i.pximg.net/img/9_p0.png"}},
			{ImageURLs: PageImageURLs{Original: "https://i.pximg.net/img/9_p1.png"}},
			{ImageURLs: PageImageURLs{Original: "https://i.pximg.net/img/9_p2.png"}},
		},
	}

	post := transform(il)
	require.Equal(t, []string{
		"https://i.pximg.net/img/9_p0.png",
		"https://i.pximg.net/img/9_p1.png",
		"https://i.pximg.net/img/9_p2.png",
	}, post.AssetURLs)
	require.Equal(t, []string{"a", "b"}, post.Tags)
	require.Equal(t, []string{"a", "b", "author"}, post.UploadTags())
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(t, "rt-secret", r.PostForm.Get("refresh_token"))
		require.NoError(t, json.NewEncoder(w).Encode(AuthResponse{AccessToken: "at-1", ExpiresIn: 3600}))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), Config{AuthURL: srv.URL, RefreshToken: "rt-secret"}, testLogger())
	require.NoError(t, client.Authenticate(context.Background()))
	require.Equal(t, "at-1", client.accessToken)
}
