package factory

import (
	"time"

	"github.com/mcoot/roomhub/internal/dependencies/mocks"
	"github.com/mcoot/roomhub/internal/notify"
	"github.com/mcoot/roomhub/internal/storage"
	"github.com/mcoot/roomhub/internal/storage/memory"
	"github.com/mcoot/roomhub/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// PlainHasher stores passwords with a marker prefix; bcrypt is too slow for
// table-heavy tests
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (PlainHasher) Verify(password, hash string) bool { return hash == "plain:"+password }

// NewTestApp creates an App on memory storage with mocked dependencies
func NewTestApp(cfg Config) *TestApp {
	return NewTestAppWithStorage(memory.New(), cfg)
}

// NewTestAppWithStorage creates an App with mocked dependencies over the given store
func NewTestAppWithStorage(store storage.Storage, cfg Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	logger := cfg.Logger
	if logger == nil {
		logger = testutil.NopLogger()
	}

	app := newWithDependencies(store, mockClock, mockRandom, notify.NewLogNotifier(logger), PlainHasher{}, cfg, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
