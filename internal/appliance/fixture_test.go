package appliance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"appliance-billing-backend/internal/db"
	"appliance-billing-backend/internal/model"
	"appliance-billing-backend/internal/store"
	"appliance-billing-backend/internal/token"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Dispatch(stateID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, stateID)
}

func (n *recordingNotifier) Dispatched() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

// fixture is a migrated in-memory database with two rooms, one endpoint, a
// washer provisioned on it and a dryer that is not.
type fixture struct {
	db       *gorm.DB
	store    store.Store
	tokens   *token.Service
	clock    *fakeClock
	notifier *recordingNotifier
	manager  *Manager

	roomA    model.Room
	roomB    model.Room
	endpoint model.Endpoint
	washer   model.Appliance
	dryer    model.Appliance
	state    model.EndpointApplianceState
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serialises
	// transactions the way row locks would on postgres.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(testDB))

	f := &fixture{
		db:       testDB,
		store:    store.NewGormStore(testDB),
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
	}

	f.tokens, err = token.NewService(token.Config{
		SigningKey:     []byte("test-signing-key"),
		Algorithm:      "HS256",
		Issuer:         "Backend",
		AccessLifetime: 5 * time.Minute,
	}, f.clock.Now)
	require.NoError(t, err)
	f.manager = NewManager(f.store, f.tokens, NewFactory(f.clock.Now), f.notifier)

	f.roomA = model.Room{Key: 101, Balance: 10000}
	f.roomB = model.Room{Key: 102, Balance: 10000}
	f.endpoint = model.Endpoint{IPAddress: "10.0.0.5", Connected: true}
	f.washer = model.Appliance{Name: "washer", PricePerUnit: 50}
	f.dryer = model.Appliance{Name: "dryer", PricePerUnit: 30}
	require.NoError(t, testDB.Create(&f.roomA).Error)
	require.NoError(t, testDB.Create(&f.roomB).Error)
	require.NoError(t, testDB.Create(&f.endpoint).Error)
	require.NoError(t, testDB.Create(&f.washer).Error)
	require.NoError(t, testDB.Create(&f.dryer).Error)

	f.state = model.EndpointApplianceState{EndpointID: f.endpoint.ID, ApplianceID: f.washer.ID}
	require.NoError(t, testDB.Omit("Endpoint", "Appliance", "Room", "RunLog").Create(&f.state).Error)
	return f
}

func (f *fixture) accessToken(t *testing.T, roomNum int64) string {
	t.Helper()
	raw, err := f.tokens.Issue(token.Access{RoomNum: roomNum, EndpointID: f.endpoint.ID})
	require.NoError(t, err)
	return raw
}

func (f *fixture) balance(t *testing.T, roomID int64) int64 {
	t.Helper()
	var room model.Room
	require.NoError(t, f.db.First(&room, roomID).Error)
	return room.Balance
}

func (f *fixture) reloadState(t *testing.T) model.EndpointApplianceState {
	t.Helper()
	var state model.EndpointApplianceState
	require.NoError(t, f.db.First(&state, f.state.ID).Error)
	return state
}

func (f *fixture) runLog(t *testing.T, id int64) model.RunLog {
	t.Helper()
	var log model.RunLog
	require.NoError(t, f.db.First(&log, id).Error)
	return log
}

func (f *fixture) countRunLogs(t *testing.T, state model.RunState) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.RunLog{}).Where("state = ?", state).Count(&n).Error)
	return n
}
