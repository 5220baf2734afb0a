package boards

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matheuscscp/ziteboard-sessions/internal/config"
	"github.com/matheuscscp/ziteboard-sessions/internal/store"
	"github.com/matheuscscp/ziteboard-sessions/internal/ziteboard"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

const oneYear = 31536000 * time.Second

type fakeClient struct {
	createBoardCalls int
	updateTokenCalls []string
	viewOnlyCalls    []string

	boardID string
	token   string
	err     error
}

func (f *fakeClient) CreateBoard(ctx context.Context) (string, string, error) {
	f.createBoardCalls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.boardID, f.token, nil
}

func (f *fakeClient) UpdateToken(ctx context.Context, boardID string) (string, error) {
	f.updateTokenCalls = append(f.updateTokenCalls, boardID)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeClient) SetViewOnly(ctx context.Context, boardID string) error {
	f.viewOnlyCalls = append(f.viewOnlyCalls, boardID)
	return f.err
}

func (f *fakeClient) vendorCalls() int {
	return f.createBoardCalls + len(f.updateTokenCalls) + len(f.viewOnlyCalls)
}

type setOrGetLessonBoardCall struct {
	lessonID string
	board    store.Board
}

type setOrGetBoardTokenCall struct {
	boardID   string
	token     string
	expiresAt time.Time
	oldToken  string
}

// recordingStore records the set-or-get calls and forwards them to a memory store.
type recordingStore struct {
	*store.MemoryStore

	lookups              []string
	lessonBoardCalls     []setOrGetLessonBoardCall
	boardTokenCalls      []setOrGetBoardTokenCall
	beforeSetLessonBoard func()
	beforeSetBoardToken  func()
}

func newRecordingStore(t *testing.T, lessons map[string]*store.Board) *recordingStore {
	t.Helper()
	ctx := context.Background()
	s := &recordingStore{MemoryStore: store.NewMemoryStore()}
	for lessonID, b := range lessons {
		if err := s.CreateLesson(ctx, lessonID); err != nil {
			t.Fatalf("failed to create lesson: %v", err)
		}
		if b == nil {
			continue
		}
		if _, err := s.MemoryStore.SetOrGetLessonBoard(ctx, lessonID, *b); err != nil {
			t.Fatalf("failed to seed lesson board: %v", err)
		}
	}
	return s
}

func (r *recordingStore) GetLessonBoardData(ctx context.Context, lessonID string) (*store.LessonBoardData, error) {
	r.lookups = append(r.lookups, lessonID)
	return r.MemoryStore.GetLessonBoardData(ctx, lessonID)
}

func (r *recordingStore) SetOrGetLessonBoard(ctx context.Context, lessonID string, b store.Board) (store.Board, error) {
	r.lessonBoardCalls = append(r.lessonBoardCalls, setOrGetLessonBoardCall{lessonID, b})
	if r.beforeSetLessonBoard != nil {
		r.beforeSetLessonBoard()
	}
	return r.MemoryStore.SetOrGetLessonBoard(ctx, lessonID, b)
}

func (r *recordingStore) SetOrGetBoardToken(ctx context.Context, boardID, token string,
	expiresAt time.Time, oldToken string) (string, time.Time, error) {

	r.boardTokenCalls = append(r.boardTokenCalls, setOrGetBoardTokenCall{boardID, token, expiresAt, oldToken})
	if r.beforeSetBoardToken != nil {
		r.beforeSetBoardToken()
	}
	return r.MemoryStore.SetOrGetBoardToken(ctx, boardID, token, expiresAt, oldToken)
}

func newTestManager(client ziteboard.Interface, st store.Store, defaultLessonID string) (*Manager, *prometheus.Registry) {
	conf := &config.Config{
		Ziteboard: config.ZiteboardConfig{
			URL:                  "https://ziteboard.com",
			APIKey:               "key",
			TokenExpiryInSeconds: 31536000,
		},
		Lessons: config.LessonsConfig{DefaultLessonID: defaultLessonID},
	}
	registry := prometheus.NewRegistry()
	m := NewManager(client, st, conf, func() time.Time { return testNow }, registry)
	return m, registry
}

func TestManager_GetBoard_NoBoardCreationDisabled(t *testing.T) {
	g := NewWithT(t)

	client := &fakeClient{boardID: "b1", token: "t1"}
	st := newRecordingStore(t, map[string]*store.Board{"L1": nil})
	m, _ := newTestManager(client, st, "")

	s, err := m.GetBoard(context.Background(), "L1", false)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s).To(BeNil())
	g.Expect(client.vendorCalls()).To(BeZero())
	g.Expect(st.lessonBoardCalls).To(BeEmpty())
	g.Expect(testutil.ToFloat64(m.sessions.WithLabelValues(outcomeNone))).To(Equal(1.0))
}

func TestManager_GetBoard_CreatesBoard(t *testing.T) {
	g := NewWithT(t)

	client := &fakeClient{boardID: "b1", token: "t1"}
	st := newRecordingStore(t, map[string]*store.Board{"L1": nil})
	m, _ := newTestManager(client, st, "")

	s, err := m.GetBoard(context.Background(), "L1", true)

	expiresAt := testNow.Add(oneYear)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s).To(Equal(&Session{BoardID: "b1", Token: "t1", ExpiresAt: expiresAt}))
	g.Expect(client.createBoardCalls).To(Equal(1))
	g.Expect(client.updateTokenCalls).To(BeEmpty())
	g.Expect(st.lessonBoardCalls).To(Equal([]setOrGetLessonBoardCall{{
		lessonID: "L1",
		board:    store.Board{ID: "b1", Token: "t1", ExpiresAt: expiresAt},
	}}))
	g.Expect(testutil.ToFloat64(m.sessions.WithLabelValues(outcomeCreated))).To(Equal(1.0))

	// The next call reuses the stored board.
	s, err = m.GetBoard(context.Background(), "L1", true)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s.BoardID).To(Equal("b1"))
	g.Expect(client.createBoardCalls).To(Equal(1))
}

func TestManager_GetBoard_ConcurrentCreatorWins(t *testing.T) {
	g := NewWithT(t)

	winner := store.Board{ID: "winner", Token: "winner-token", ExpiresAt: testNow.Add(time.Hour)}
	client := &fakeClient{boardID: "loser", token: "loser-token"}
	st := newRecordingStore(t, map[string]*store.Board{"L1": nil})
	st.beforeSetLessonBoard = func() {
		_, err := st.MemoryStore.SetOrGetLessonBoard(context.Background(), "L1", winner)
		g.Expect(err).ToNot(HaveOccurred())
	}
	m, _ := newTestManager(client, st, "")

	s, err := m.GetBoard(context.Background(), "L1", true)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s).To(Equal(&Session{BoardID: "winner", Token: "winner-token", ExpiresAt: winner.ExpiresAt}))
	g.Expect(client.createBoardCalls).To(Equal(1))
}

func TestManager_GetBoard_RefreshesExpiredToken(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
	}{
		{
			name:      "expired in the past",
			expiresAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "expires exactly now",
			expiresAt: testNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			client := &fakeClient{token: "new"}
			st := newRecordingStore(t, map[string]*store.Board{
				"L2": {ID: "b2", Token: "old", ExpiresAt: tt.expiresAt},
			})
			m, _ := newTestManager(client, st, "")

			s, err := m.GetBoard(context.Background(), "L2", true)

			expiresAt := testNow.Add(oneYear)
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(s).To(Equal(&Session{BoardID: "b2", Token: "new", ExpiresAt: expiresAt}))
			g.Expect(client.createBoardCalls).To(BeZero())
			g.Expect(client.updateTokenCalls).To(Equal([]string{"b2"}))
			g.Expect(st.boardTokenCalls).To(Equal([]setOrGetBoardTokenCall{{
				boardID:   "b2",
				token:     "new",
				expiresAt: expiresAt,
				oldToken:  "old",
			}}))
			g.Expect(st.lessonBoardCalls).To(BeEmpty())
			g.Expect(testutil.ToFloat64(m.sessions.WithLabelValues(outcomeRefreshed))).To(Equal(1.0))
		})
	}
}

func TestManager_GetBoard_RefreshesEvenWhenCreationDisabled(t *testing.T) {
	g := NewWithT(t)

	client := &fakeClient{token: "new"}
	st := newRecordingStore(t, map[string]*store.Board{
		"L2": {ID: "b2", Token: "old", ExpiresAt: testNow.Add(-time.Second)},
	})
	m, _ := newTestManager(client, st, "")

	s, err := m.GetBoard(context.Background(), "L2", false)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s.Token).To(Equal("new"))
	g.Expect(client.updateTokenCalls).To(Equal([]string{"b2"}))
}

func TestManager_GetBoard_ConcurrentRefresherWins(t *testing.T) {
	g := NewWithT(t)

	winnerExpiresAt := testNow.Add(48 * time.Hour)
	client := &fakeClient{token: "loser"}
	st := newRecordingStore(t, map[string]*store.Board{
		"L2": {ID: "b2", Token: "old", ExpiresAt: testNow.Add(-time.Hour)},
	})
	st.beforeSetBoardToken = func() {
		_, _, err := st.MemoryStore.SetOrGetBoardToken(context.Background(), "b2", "winner", winnerExpiresAt, "old")
		g.Expect(err).ToNot(HaveOccurred())
	}
	m, _ := newTestManager(client, st, "")

	s, err := m.GetBoard(context.Background(), "L2", true)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s).To(Equal(&Session{BoardID: "b2", Token: "winner", ExpiresAt: winnerExpiresAt}))
}

func TestManager_GetBoard_ReusesValidToken(t *testing.T) {
	g := NewWithT(t)

	stored := store.Board{ID: "b3", Token: "valid", ExpiresAt: testNow.Add(time.Nanosecond)}
	client := &fakeClient{}
	st := newRecordingStore(t, map[string]*store.Board{"L3": &stored})
	m, _ := newTestManager(client, st, "")

	for _, createNew := range []bool{true, false} {
		s, err := m.GetBoard(context.Background(), "L3", createNew)

		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(s).To(Equal(&Session{BoardID: "b3", Token: "valid", ExpiresAt: stored.ExpiresAt}))
	}
	g.Expect(client.vendorCalls()).To(BeZero())
	g.Expect(st.lessonBoardCalls).To(BeEmpty())
	g.Expect(st.boardTokenCalls).To(BeEmpty())
	g.Expect(testutil.ToFloat64(m.sessions.WithLabelValues(outcomeReused))).To(Equal(2.0))
}

func TestManager_GetBoard_UnknownLesson(t *testing.T) {
	t.Run("without default lesson the error propagates", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{boardID: "b1", token: "t1"}
		st := newRecordingStore(t, nil)
		m, _ := newTestManager(client, st, "")

		s, err := m.GetBoard(context.Background(), "L3", true)

		g.Expect(err).To(MatchError(store.ErrLessonNotFound))
		g.Expect(s).To(BeNil())
		g.Expect(st.lookups).To(Equal([]string{"L3"}))
		g.Expect(client.vendorCalls()).To(BeZero())
	})

	t.Run("falls back to the default lesson once", func(t *testing.T) {
		g := NewWithT(t)

		stored := store.Board{ID: "lobby-board", Token: "lobby-token", ExpiresAt: testNow.Add(time.Hour)}
		client := &fakeClient{}
		st := newRecordingStore(t, map[string]*store.Board{"lobby": &stored})
		m, _ := newTestManager(client, st, "lobby")

		s, err := m.GetBoard(context.Background(), "L3", true)

		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(s).To(Equal(&Session{BoardID: "lobby-board", Token: "lobby-token", ExpiresAt: stored.ExpiresAt}))
		g.Expect(st.lookups).To(Equal([]string{"L3", "lobby"}))
	})

	t.Run("board is created for the default lesson", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{boardID: "b1", token: "t1"}
		st := newRecordingStore(t, map[string]*store.Board{"lobby": nil})
		m, _ := newTestManager(client, st, "lobby")

		_, err := m.GetBoard(context.Background(), "L3", true)

		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(st.lessonBoardCalls).To(HaveLen(1))
		g.Expect(st.lessonBoardCalls[0].lessonID).To(Equal("lobby"))
	})

	t.Run("missing default lesson is not retried again", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{}
		st := newRecordingStore(t, nil)
		m, _ := newTestManager(client, st, "lobby")

		_, err := m.GetBoard(context.Background(), "L3", true)

		g.Expect(err).To(MatchError(store.ErrLessonNotFound))
		g.Expect(err.Error()).To(ContainSubstring("failed to get default lesson lobby"))
		g.Expect(st.lookups).To(Equal([]string{"L3", "lobby"}))
	})
}

func TestManager_GetBoard_VendorErrors(t *testing.T) {
	vendorErr := &ziteboard.VendorError{Path: "/api/createboard", Reason: "success is not true", Response: `{"success":false}`}

	t.Run("create board failure stores nothing", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{err: vendorErr}
		st := newRecordingStore(t, map[string]*store.Board{"L1": nil})
		m, _ := newTestManager(client, st, "")

		s, err := m.GetBoard(context.Background(), "L1", true)

		g.Expect(s).To(BeNil())
		var target *ziteboard.VendorError
		g.Expect(errors.As(err, &target)).To(BeTrue())
		g.Expect(st.lessonBoardCalls).To(BeEmpty())
	})

	t.Run("update token failure stores nothing", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{err: vendorErr}
		st := newRecordingStore(t, map[string]*store.Board{
			"L2": {ID: "b2", Token: "old", ExpiresAt: testNow.Add(-time.Hour)},
		})
		m, _ := newTestManager(client, st, "")

		s, err := m.GetBoard(context.Background(), "L2", true)

		g.Expect(s).To(BeNil())
		var target *ziteboard.VendorError
		g.Expect(errors.As(err, &target)).To(BeTrue())
		g.Expect(st.boardTokenCalls).To(BeEmpty())
	})

	t.Run("transport cancellation propagates", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{err: &ziteboard.TransportError{Method: "POST", Path: "/api/createboard", Err: context.Canceled}}
		st := newRecordingStore(t, map[string]*store.Board{"L1": nil})
		m, _ := newTestManager(client, st, "")

		_, err := m.GetBoard(context.Background(), "L1", true)

		g.Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
}

func TestManager_SetViewOnly(t *testing.T) {
	t.Run("board exists", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{}
		st := newRecordingStore(t, map[string]*store.Board{
			"L1": {ID: "b1", Token: "t1", ExpiresAt: testNow.Add(-time.Hour)},
		})
		m, _ := newTestManager(client, st, "")

		err := m.SetViewOnly(context.Background(), "L1")

		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(client.viewOnlyCalls).To(Equal([]string{"b1"}))
		g.Expect(client.updateTokenCalls).To(BeEmpty())
	})

	t.Run("no board", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{}
		st := newRecordingStore(t, map[string]*store.Board{"L1": nil})
		m, _ := newTestManager(client, st, "")

		err := m.SetViewOnly(context.Background(), "L1")

		g.Expect(err).To(MatchError(ErrNoBoard))
		g.Expect(client.vendorCalls()).To(BeZero())
	})

	t.Run("vendor failure", func(t *testing.T) {
		g := NewWithT(t)

		client := &fakeClient{err: &ziteboard.VendorError{Path: "/api/updateboard", Reason: "success is not true"}}
		st := newRecordingStore(t, map[string]*store.Board{
			"L1": {ID: "b1", Token: "t1", ExpiresAt: testNow.Add(time.Hour)},
		})
		m, _ := newTestManager(client, st, "")

		err := m.SetViewOnly(context.Background(), "L1")

		var target *ziteboard.VendorError
		g.Expect(errors.As(err, &target)).To(BeTrue())
	})
}
