package engine

import (
	"net/http"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubd/internal/matching"
	"github.com/getmockd/stubd/pkg/capture"
	"github.com/getmockd/stubd/pkg/request"
	"github.com/getmockd/stubd/pkg/scenario"
	"github.com/getmockd/stubd/pkg/stub"
)

func textMapping(method, url, body string) *stub.Mapping {
	return stub.New(matching.NewRequestPattern(method, url), &stub.ResponseDefinition{Status: http.StatusOK, Body: body})
}

func TestStubMappings_PriorityWinsOverRegistrationOrder(t *testing.T) {
	for _, order := range []string{"A first", "B first"} {
		t.Run(order, func(t *testing.T) {
			sm := NewStubMappings()
			a := textMapping("GET", "/foo", "A").WithPriority(1)
			b := textMapping("GET", "/foo", "B").WithPriority(10)
			if order == "A first" {
				require.NoError(t, sm.Register(a))
				require.NoError(t, sm.Register(b))
			} else {
				require.NoError(t, sm.Register(b))
				require.NoError(t, sm.Register(a))
			}

			for range 3 {
				def := sm.Serve(request.New("GET", "/foo", nil, nil))
				assert.Equal(t, "A", def.Body)
			}
		})
	}
}

func TestStubMappings_InsertionOrderBreaksTies(t *testing.T) {
	sm := NewStubMappings()
	require.NoError(t, sm.Register(textMapping("GET", "/foo", "first")))
	require.NoError(t, sm.Register(textMapping("GET", "/foo", "second")))

	assert.Equal(t, "first", sm.Serve(request.New("GET", "/foo", nil, nil)).Body)

	list := sm.List()
	require.Len(t, list, 2)
	assert.Less(t, list[0].InsertionIndex(), list[1].InsertionIndex())
}

func TestStubMappings_NoMatchReturnsNotConfigured(t *testing.T) {
	sm := NewStubMappings()
	require.NoError(t, sm.Register(textMapping("GET", "/foo", "foo")))

	def, m := sm.ServeMapping(request.New("GET", "/bar", nil, nil))
	assert.Nil(t, m)
	assert.False(t, def.IsConfigured())
	assert.Equal(t, http.StatusNotFound, def.EffectiveStatus())
}

func TestStubMappings_ScenarioTransitions(t *testing.T) {
	sm := NewStubMappings()
	m2 := textMapping("GET", "/todo", "M2").InScenario("todo").WhenScenarioStateIs("STEP2")
	m1 := textMapping("GET", "/todo", "M1").InScenario("todo").WillSetStateTo("STEP2")
	require.NoError(t, sm.Register(m2))
	require.NoError(t, sm.Register(m1))

	req := request.New("GET", "/todo", nil, nil)
	assert.Equal(t, "M1", sm.Serve(req).Body)

	s, ok := sm.Scenarios().Get("todo")
	require.True(t, ok)
	assert.Equal(t, "STEP2", s.State())

	assert.Equal(t, "M2", sm.Serve(req).Body)
	assert.Equal(t, "M2", sm.Serve(req).Body)

	sm.ResetScenarios()
	assert.Equal(t, scenario.Started, s.State())
	assert.Equal(t, "M1", sm.Serve(req).Body)
}

func TestStubMappings_NonInitialPreconditionNeverMatchesUntilReached(t *testing.T) {
	sm := NewStubMappings()
	require.NoError(t, sm.Register(textMapping("GET", "/x", "late").InScenario("s").WhenScenarioStateIs("LATER")))

	def := sm.Serve(request.New("GET", "/x", nil, nil))
	assert.False(t, def.IsConfigured())

	s, ok := sm.Scenarios().Get("s")
	require.True(t, ok)
	assert.Equal(t, scenario.Started, s.State())
}

func TestStubMappings_CaptureAndReplace(t *testing.T) {
	sm := NewStubMappings()
	m := stub.New(
		&matching.RequestPattern{Method: "GET", URLPathPattern: "/user/.*"},
		&stub.ResponseDefinition{Body: "hello ${name}"},
	).WithCapture(capture.URL("name").WithPattern("/user/(.*)").WithGroup(1))
	require.NoError(t, sm.Register(m))

	def := sm.Serve(request.New("GET", "/user/alice", nil, nil))
	require.True(t, def.IsConfigured())
	assert.Equal(t, "hello alice", renderBody(t, def))
	assert.Equal(t, "hello ${name}", m.Response.Body, "stored definition must not change")
}

func TestStubMappings_ReplacerAttachedOnlyWhenNeeded(t *testing.T) {
	sm := NewStubMappings()
	require.NoError(t, sm.Register(textMapping("GET", "/static", "${name}")))
	require.NoError(t, sm.Register(textMapping("GET", "/captured", "${name}").WithCapture(capture.URL("name"))))
	require.NoError(t, sm.Register(textMapping("GET", "/random", "${name}").WithRandomValue("name", "aaaa")))

	static := sm.Serve(request.New("GET", "/static", nil, nil))
	require.True(t, static.IsConfigured())
	assert.Nil(t, static.Replacer())
	assert.Equal(t, "${name}", renderBody(t, static))

	captured := sm.Serve(request.New("GET", "/captured", nil, nil))
	require.NotNil(t, captured.Replacer())
	assert.Equal(t, "/captured", renderBody(t, captured))

	assert.NotNil(t, sm.Serve(request.New("GET", "/random", nil, nil)).Replacer())
}

func TestStubMappings_CaptureFallbackIsEmpty(t *testing.T) {
	sm := NewStubMappings()
	m := textMapping("GET", "/plain", "[${who}]").WithCapture(capture.Header("X-Who", "who").WithPattern("id=(\\d+)"))
	require.NoError(t, sm.Register(m))

	def := sm.Serve(request.New("GET", "/plain", http.Header{"X-Who": {"nobody"}}, nil))
	assert.Equal(t, "[]", renderBody(t, def))
}

func TestStubMappings_RandomValues(t *testing.T) {
	sm := NewStubMappings()
	m := textMapping("GET", "/token", "token=${token}").WithRandomValue("token", "XXXX-0000")
	require.NoError(t, sm.Register(m))

	re := regexp.MustCompile(`^token=[0-9A-F]{4}-[0-9]{4}$`)
	seen := map[string]bool{}
	for range 5 {
		body := renderBody(t, sm.Serve(request.New("GET", "/token", nil, nil)))
		assert.Regexp(t, re, body)
		seen[body] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestStubMappings_CaptureOverridesRandomValue(t *testing.T) {
	sm := NewStubMappings()
	m := textMapping("GET", "/both", "${v}").
		WithRandomValue("v", "aaaa").
		WithCapture(capture.URL("v").WithPattern("/(both)"))
	require.NoError(t, sm.Register(m))

	assert.Equal(t, "both", renderBody(t, sm.Serve(request.New("GET", "/both", nil, nil))))
}

func TestStubMappings_RegisterRejectsInvalid(t *testing.T) {
	sm := NewStubMappings()
	err := sm.Register(stub.New(nil, &stub.ResponseDefinition{}))
	require.ErrorIs(t, err, stub.ErrInvalidMapping)
	assert.Equal(t, 0, sm.Count())
}

func TestStubMappings_GetRemoveReset(t *testing.T) {
	sm := NewStubMappings()
	m := textMapping("GET", "/a", "a").InScenario("s")
	require.NoError(t, sm.Register(m))
	require.NotEmpty(t, m.ID)

	assert.Same(t, m, sm.Get(m.ID))
	assert.True(t, sm.Remove(m.ID))
	assert.False(t, sm.Remove(m.ID))
	assert.Nil(t, sm.Get(m.ID))
	assert.Equal(t, 1, sm.Scenarios().Len(), "scenario survives mapping removal")

	require.NoError(t, sm.Register(textMapping("GET", "/b", "b").InScenario("s2")))
	sm.Reset()
	assert.Equal(t, 0, sm.Count())
	assert.Equal(t, 0, sm.Scenarios().Len())
}

func TestStubMappings_NearMisses(t *testing.T) {
	sm := NewStubMappings()
	near := textMapping("GET", "/orders/1", "order")
	far := textMapping("POST", "/users", "users")
	require.NoError(t, sm.Register(near))
	require.NoError(t, sm.Register(far))

	misses := sm.NearMisses(request.New("GET", "/orders/2", nil, nil), 3)
	require.NotEmpty(t, misses)
	assert.Equal(t, near.ID, misses[0].MappingID)
}

func TestStubMappings_ConcurrentServeAndRegister(t *testing.T) {
	sm := NewStubMappings()
	require.NoError(t, sm.Register(textMapping("GET", "/hot", "hot")))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				def := sm.Serve(request.New("GET", "/hot", nil, nil))
				assert.True(t, def.IsConfigured())
			}
		}()
		go func() {
			defer wg.Done()
			_ = sm.Register(textMapping("GET", "/cold", "cold").WithPriority(i))
		}()
	}
	wg.Wait()
	assert.Equal(t, 9, sm.Count())
}

func renderBody(t *testing.T, def *stub.ResponseDefinition) string {
	t.Helper()
	resp, err := NewRenderer().Render(def)
	require.NoError(t, err)
	return resp.BodyString()
}
