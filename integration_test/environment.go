package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"roomcast/internal/database"
	"roomcast/internal/media"
	"roomcast/internal/models"
	"roomcast/internal/service"
	"roomcast/pkg/cloudapi"
	"roomcast/pkg/push"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// TestEnvironment wires the real ingestion stack against a real SQLite
// database and HTTP fakes for the platform and push provider. Only the
// realtime channel is stubbed in-process.
type TestEnvironment struct {
	t *testing.T

	DB       *database.Database
	Router   *service.EventRouter
	Ingest   *service.IngestService
	Realtime *recordingRealtime
	Store    *memoryStore

	Platform *platformFake
	PushHits *pushRecorder

	cleanup []func()
}

func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{t: t}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dbPath := filepath.Join(t.TempDir(), "roomcast.db")
	db, err := database.New(dbPath)
	require.NoError(t, err)
	env.DB = db
	env.cleanup = append(env.cleanup, func() { _ = db.Close() })

	env.Platform = newPlatformFake()
	platformServer := httptest.NewServer(env.Platform)
	env.cleanup = append(env.cleanup, platformServer.Close)

	env.PushHits = &pushRecorder{}
	pushServer := httptest.NewServer(env.PushHits)
	env.cleanup = append(env.cleanup, pushServer.Close)

	platformClient := cloudapi.NewClient(cloudapi.ClientConfig{
		BaseURL:       platformServer.URL,
		AccessToken:   "test-token",
		PhoneNumberID: "12345",
		RetryCount:    1,
	})
	pushClient := push.NewClient(push.ClientConfig{
		Endpoint:  pushServer.URL,
		ServerKey: "test-key",
	})

	env.Store = newMemoryStore()
	pipeline := media.NewPipeline(platformClient, env.Store, models.MediaConfig{
		MaxBytes:    1 << 20,
		URLTTLHours: 1,
		Category:    "chat-media",
	}, true, logger)

	env.Realtime = &recordingRealtime{}
	fanout := service.NewFanoutEngine(db, env.Realtime, pushClient, logger)
	env.Ingest = service.NewIngestService(db, pipeline, fanout, platformClient, logger)
	tracker := service.NewStatusTracker(db, logger)
	env.Router = service.NewEventRouter(env.Ingest, tracker, logger)

	return env
}

func (env *TestEnvironment) Cleanup() {
	for i := len(env.cleanup) - 1; i >= 0; i-- {
		env.cleanup[i]()
	}
}

// SeedSubscriber attaches a user with a push token to the given room.
func (env *TestEnvironment) SeedSubscriber(roomID, userID int64, token string) {
	env.t.Helper()
	ctx := context.Background()
	require.NoError(env.t, env.DB.AddParticipant(ctx, roomID, userID))
	require.NoError(env.t, env.DB.SavePushTarget(ctx, userID, token))
}

// Deliver routes a raw webhook payload through the full stack.
func (env *TestEnvironment) Deliver(payload string) *models.WebhookSummary {
	env.t.Helper()

	var parsed models.WebhookPayload
	require.NoError(env.t, json.Unmarshal([]byte(payload), &parsed))
	return env.Router.Route(context.Background(), &parsed)
}

// recordingRealtime captures broadcast events in memory.
type recordingRealtime struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	RoomID  int64
	Message *models.Message
}

func (r *recordingRealtime) PublishMessage(ctx context.Context, roomID int64, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcastEvent{RoomID: roomID, Message: msg})
	return nil
}

func (r *recordingRealtime) Events() []broadcastEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcastEvent, len(r.events))
	copy(out, r.events)
	return out
}

// platformFake serves media metadata, media bytes and the outbound send
// endpoint the way the platform's Graph-style API does.
type platformFake struct {
	mu        sync.Mutex
	mediaByID map[string]fakeMedia
	sent      []map[string]interface{}
	nextMsgID int
}

type fakeMedia struct {
	data        []byte
	contentType string
}

func newPlatformFake() *platformFake {
	return &platformFake{mediaByID: make(map[string]fakeMedia)}
}

func (p *platformFake) AddMedia(id string, data []byte, contentType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mediaByID[id] = fakeMedia{data: data, contentType: contentType}
}

func (p *platformFake) SentMessages() []map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]interface{}, len(p.sent))
	copy(out, p.sent)
	return out
}

func (p *platformFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.Method == http.MethodPost:
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.sent = append(p.sent, body)
		p.nextMsgID++
		resp := map[string]interface{}{
			"messaging_product": "whatsapp",
			"messages": []map[string]string{
				{"id": fmt.Sprintf("wamid.OUT%d", p.nextMsgID)},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)

	case len(r.URL.Path) > len("/download/") && r.URL.Path[:len("/download/")] == "/download/":
		id := r.URL.Path[len("/download/"):]
		media, ok := p.mediaByID[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", media.contentType)
		_, _ = w.Write(media.data)

	default:
		id := r.URL.Path[1:]
		media, ok := p.mediaByID[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		info := map[string]interface{}{
			"id":        id,
			"url":       fmt.Sprintf("http://%s/download/%s", r.Host, id),
			"mime_type": media.contentType,
			"file_size": len(media.data),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}
}

// pushRecorder accepts multicast sends and reports every token delivered.
type pushRecorder struct {
	mu       sync.Mutex
	requests []pushRequest
}

type pushRequest struct {
	RegistrationIDs []string `json:"registration_ids"`
	Notification    struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data map[string]string `json:"data"`
}

func (p *pushRecorder) Requests() []pushRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pushRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *pushRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	results := make([]map[string]string, len(req.RegistrationIDs))
	for i := range req.RegistrationIDs {
		results[i] = map[string]string{"message_id": fmt.Sprintf("0:%d", i)}
	}
	resp := map[string]interface{}{
		"success": len(req.RegistrationIDs),
		"failure": 0,
		"results": results,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// memoryStore is an in-memory object store standing in for the bucket.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memoryStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://store.test/" + key + "?signed=1", nil
}

func (s *memoryStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

func (s *memoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
