package dialogue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	dialoguehandler "github.com/tabletopforge/npc-dialogue/internal/handler/dialogue"
	npcmodel "github.com/tabletopforge/npc-dialogue/internal/model/npc"
	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	"github.com/tabletopforge/npc-dialogue/internal/ratelimit"
	dialogueservice "github.com/tabletopforge/npc-dialogue/internal/service/dialogue"
	"github.com/tabletopforge/npc-dialogue/internal/service/hub"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
	triggerservice "github.com/tabletopforge/npc-dialogue/internal/service/trigger"
)

type staticModel struct {
	response string
}

func (s *staticModel) Generate(_ context.Context, _ npcmodel.Profile, _ sessionmodel.Session, _ string) (string, error) {
	return s.response, nil
}

func newTestRouter(t *testing.T, limit int) (http.Handler, *sessionservice.Store) {
	t.Helper()

	profiles := npcmodel.NewMemoryStore([]npcmodel.Profile{{ID: "bren", Name: "Bren"}})
	sessions := sessionservice.NewStore(nil)
	broadcast := hub.NewHub(sessions)
	svc := dialogueservice.NewService(
		profiles,
		sessions,
		ratelimit.New(time.Minute, limit),
		triggerservice.NewEngine(sessions, profiles),
		broadcast,
		&staticModel{response: "Aye."},
		time.Second,
	)

	r := chi.NewRouter()
	dialoguehandler.New(svc).RegisterRoutes(r)
	return r, sessions
}

func TestDialogueTurnReturnsReply(t *testing.T) {
	router, _ := newTestRouter(t, 5)

	req := httptest.NewRequest(http.MethodPost, "/npcs/bren/dialogue", strings.NewReader(`{"input":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var reply dialogueservice.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Response != "Aye." {
		t.Fatalf("response = %q", reply.Response)
	}
	if len(reply.Session.Messages) != 2 {
		t.Fatalf("messages = %+v", reply.Session.Messages)
	}
}

func TestDialogueRateLimitedReturns429(t *testing.T) {
	router, _ := newTestRouter(t, 1)

	first := httptest.NewRequest(http.MethodPost, "/npcs/bren/dialogue", strings.NewReader(`{"input":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first turn status = %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/npcs/bren/dialogue", strings.NewReader(`{"input":"again"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}

	var body struct {
		RetryAfter int `json:"retryAfter"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RetryAfter <= 0 || body.RetryAfter > 60 {
		t.Fatalf("retryAfter = %d, want in (0, 60]", body.RetryAfter)
	}
}

func TestDialogueUnknownNPCReturns404(t *testing.T) {
	router, _ := newTestRouter(t, 5)

	req := httptest.NewRequest(http.MethodPost, "/npcs/nobody/dialogue", strings.NewReader(`{"input":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAdjustAttributeEndpointClamps(t *testing.T) {
	router, _ := newTestRouter(t, 5)

	req := httptest.NewRequest(http.MethodPost, "/npcs/bren/attributes", strings.NewReader(`{"kind":"patience","delta":10}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var committed sessionmodel.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &committed); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if committed.Patience != 5 {
		t.Fatalf("patience = %d, want clamped 5", committed.Patience)
	}
}

func TestClearHistoryEndpoint(t *testing.T) {
	router, sessions := newTestRouter(t, 5)
	ctx := context.Background()

	sessions.Append(ctx, "bren", sessionmodel.Message{Role: sessionmodel.RoleUser, Content: "hello"})

	req := httptest.NewRequest(http.MethodPost, "/npcs/bren/clear", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := sessions.Get(ctx, "bren"); len(got.Messages) != 0 {
		t.Fatalf("history not cleared: %+v", got.Messages)
	}
}

func TestSetAttitudeEndpointRejectsUnknown(t *testing.T) {
	router, _ := newTestRouter(t, 5)

	req := httptest.NewRequest(http.MethodPost, "/npcs/bren/attitude", strings.NewReader(`{"attitude":"belligerent"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
