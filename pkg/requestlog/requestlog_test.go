package requestlog

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubd/pkg/request"
)

type pathPrefix string

func (p pathPrefix) Matches(req *request.Request) bool {
	return strings.HasPrefix(req.Path(), string(p))
}

func logged(s Store, method, url string, status int, mappingID string) *Entry {
	e := NewEntry(request.New(method, url, nil, nil))
	e.ResponseStatus = status
	e.MappingID = mappingID
	e.WasMatched = mappingID != ""
	s.Log(e)
	return e
}

func TestMemoryStore_LogAssignsIDAndTime(t *testing.T) {
	s := NewMemoryStore(10)
	e := logged(s, "GET", "/a", 200, "m1")

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.LoggedAt.IsZero())
	assert.Equal(t, 1, s.Count())
	assert.Same(t, e, s.Get(e.ID))
	assert.Nil(t, s.Get("missing"))

	s.Log(nil)
	s.Log(&Entry{})
	assert.Equal(t, 1, s.Count())
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	s := NewMemoryStore(3)
	for i := 0; i < 5; i++ {
		logged(s, "GET", fmt.Sprintf("/%d", i), 200, "")
	}

	list, err := s.List(nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "/4", list[0].Request.URL)
	assert.Equal(t, "/2", list[2].Request.URL)
}

func TestMemoryStore_ListFilter(t *testing.T) {
	s := NewMemoryStore(0)
	logged(s, "GET", "/users/1", 200, "m1")
	logged(s, "POST", "/users", 201, "m2")
	logged(s, "GET", "/orders", 404, "")
	logged(s, "GET", "/users/2", 200, "m1")

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"method", Filter{Method: "post"}, []string{"/users"}},
		{"path prefix", Filter{Path: "/users/"}, []string{"/users/2", "/users/1"}},
		{"mapping", Filter{MappingID: "m1"}, []string{"/users/2", "/users/1"}},
		{"unmatched", Filter{Unmatched: true}, []string{"/orders"}},
		{"status", Filter{StatusCode: 201}, []string{"/users"}},
		{"limit", Filter{Limit: 2}, []string{"/users/2", "/orders"}},
		{"offset", Filter{Offset: 3}, []string{"/users/1"}},
		{"offset past end", Filter{Offset: 9}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			list, err := s.List(&f)
			require.NoError(t, err)
			urls := make([]string, 0, len(list))
			for _, e := range list {
				urls = append(urls, e.Request.URL)
			}
			assert.Equal(t, tt.want, urls)
		})
	}
}

func TestMemoryStore_FindAndCount(t *testing.T) {
	s := NewMemoryStore(0)
	logged(s, "GET", "/users/1", 200, "m1")
	logged(s, "GET", "/orders", 200, "m2")
	logged(s, "GET", "/users/2", 200, "m1")

	found, err := s.Find(pathPrefix("/users"))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "/users/1", found[0].Request.URL, "oldest first")

	n, err := s.CountMatching(pathPrefix("/orders"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s.Clear()
	assert.Equal(t, 0, s.Count())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				logged(s, "GET", "/x", 200, "")
				_, _ = s.CountMatching(pathPrefix("/x"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Count())
}

func TestNewEntry_TruncatesBody(t *testing.T) {
	body := strings.Repeat("a", maxBodyPreview+10)
	e := NewEntry(request.New("POST", "/", nil, []byte(body)))
	assert.Len(t, e.Body, maxBodyPreview)
}

func TestDisabled(t *testing.T) {
	var s Store = Disabled{}
	s.Log(NewEntry(request.New("GET", "/", nil, nil)))

	assert.False(t, s.Enabled())
	assert.Equal(t, 0, s.Count())
	_, err := s.List(nil)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.Find(pathPrefix("/"))
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.CountMatching(pathPrefix("/"))
	assert.ErrorIs(t, err, ErrDisabled)
}
