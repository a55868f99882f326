package service

import (
	"context"
	"sync"
	"time"

	"roomcast/internal/media"
	"roomcast/internal/models"
	"roomcast/pkg/cloudapi"
	"roomcast/pkg/push"
)

// mockDatabase is an in-memory Database with per-call error injection.
type mockDatabase struct {
	mu sync.Mutex

	rooms       map[string]*models.Room
	messages    map[string]*models.Message
	nextRoomID  int64
	historyLog  []*models.StatusHistoryEntry
	pushTargets []models.PushTarget
	deleted     []string
	mediaURLs   map[string]string

	ensureRoomErr   error
	insertErr       error
	updateStatusErr error
	listTargetsErr  error
	deleteErr       error
	historyErr      error
}

func newMockDatabase() *mockDatabase {
	return &mockDatabase{
		rooms:     make(map[string]*models.Room),
		messages:  make(map[string]*models.Message),
		mediaURLs: make(map[string]string),
	}
}

func (m *mockDatabase) EnsureRoom(ctx context.Context, externalID, title string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureRoomErr != nil {
		return nil, m.ensureRoomErr
	}
	if room, ok := m.rooms[externalID]; ok {
		return room, nil
	}
	m.nextRoomID++
	room := &models.Room{ID: m.nextRoomID, ExternalID: externalID, Title: title}
	m.rooms[externalID] = room
	return room, nil
}

func (m *mockDatabase) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, false, m.insertErr
	}
	if msg.PlatformMsgID != nil {
		if existing, ok := m.messages[*msg.PlatformMsgID]; ok {
			return existing, true, nil
		}
		m.messages[*msg.PlatformMsgID] = msg
	}
	return msg, false, nil
}

func (m *mockDatabase) GetMessageByPlatformID(ctx context.Context, platformID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[platformID]; ok {
		return msg, nil
	}
	return nil, nil
}

func (m *mockDatabase) UpdateMessageStatus(ctx context.Context, platformID string, status models.MessageStatus, at time.Time) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateStatusErr != nil {
		return nil, m.updateStatusErr
	}
	msg, ok := m.messages[platformID]
	if !ok {
		return nil, models.ErrMessageNotFound
	}
	msg.Status = status
	msg.StatusAt = &at
	return msg, nil
}

func (m *mockDatabase) UpdateMediaURL(ctx context.Context, messageID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mediaURLs[messageID] = url
	return nil
}

func (m *mockDatabase) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return m.historyErr
	}
	m.historyLog = append(m.historyLog, entry)
	return nil
}

func (m *mockDatabase) ListRoomPushTargets(ctx context.Context, roomID int64) ([]models.PushTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listTargetsErr != nil {
		return nil, m.listTargetsErr
	}
	return m.pushTargets, nil
}

func (m *mockDatabase) DeletePushTarget(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, token)
	return nil
}

// mockMediaPipeline records Ingest calls and returns canned results.
type mockMediaPipeline struct {
	ingestResp *models.MediaInfo
	ingestErr  error
	refreshURL string
	refreshErr error
	ingested   []media.SourceRef
}

func (m *mockMediaPipeline) Ingest(ctx context.Context, ref media.SourceRef, roomIdentity string) (*models.MediaInfo, error) {
	m.ingested = append(m.ingested, ref)
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	return m.ingestResp, nil
}

func (m *mockMediaPipeline) RefreshURL(ctx context.Context, locator string) (string, error) {
	if m.refreshErr != nil {
		return "", m.refreshErr
	}
	return m.refreshURL, nil
}

type publishedEvent struct {
	roomID int64
	msg    *models.Message
}

type mockRealtime struct {
	published  []publishedEvent
	publishErr error
}

func (m *mockRealtime) PublishMessage(ctx context.Context, roomID int64, msg *models.Message) error {
	m.published = append(m.published, publishedEvent{roomID: roomID, msg: msg})
	return m.publishErr
}

type multicastCall struct {
	tokens       []string
	notification push.Notification
}

type mockPush struct {
	calls   []multicastCall
	result  *push.MulticastResult
	sendErr error
}

func (m *mockPush) SendMulticast(ctx context.Context, tokens []string, n push.Notification) (*push.MulticastResult, error) {
	m.calls = append(m.calls, multicastCall{tokens: tokens, notification: n})
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &push.MulticastResult{Success: len(tokens)}, nil
}

type mockSender struct {
	resp    *cloudapi.SendResponse
	sendErr error
	sent    []string
}

func (m *mockSender) SendText(ctx context.Context, to, body string) (*cloudapi.SendResponse, error) {
	m.sent = append(m.sent, body)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return m.resp, nil
}
