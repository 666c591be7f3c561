package core

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/inboxwatch/internal/model"
)

// mockDB implements DB for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// sqlContaining matches a SQL argument containing the fragment.
func sqlContaining(fragment string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

// mockRow implements pgx.Row.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

func boolRow(v bool) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = v
		return nil
	}}
}

func errRow(err error) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return err }}
}

// mockRows implements pgx.Rows, one scan function per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

// stringRows yields one single-column row per value.
func stringRows(values ...string) *mockRows {
	funcs := make([]func(dest ...any) error, len(values))
	for i, v := range values {
		funcs[i] = func(dest ...any) error {
			*(dest[0].(*string)) = v
			return nil
		}
	}
	return newMockRows(funcs...)
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// fakeDirectory is an in-memory RoleDirectory.
type fakeDirectory struct {
	holders map[string][]string
	err     error
}

func (f *fakeDirectory) UsersWithRole(_ context.Context, role string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.holders[role], nil
}

// fakeDeviceStore is an in-memory DeviceStore.
type fakeDeviceStore struct {
	mu      sync.Mutex
	devices []model.Device
	listErr error
	deleted []string
}

func (f *fakeDeviceStore) ListForUsers(_ context.Context, userIDs []string) ([]model.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []model.Device
	for _, d := range f.devices {
		if want[d.UserID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDeviceStore) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, token)
	kept := f.devices[:0]
	for _, d := range f.devices {
		if d.Token != token {
			kept = append(kept, d)
		}
	}
	f.devices = kept
	return nil
}

func (f *fakeDeviceStore) tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, d := range f.devices {
		out = append(out, d.Token)
	}
	return out
}

// fakePusher returns a per-token error, nil when absent.
type fakePusher struct {
	mu      sync.Mutex
	enabled bool
	errs    map[string]error
	sent    []string
}

func (f *fakePusher) Enabled() bool { return f.enabled }

func (f *fakePusher) Send(_ context.Context, device model.Device, _ model.PushPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, device.Token)
	return f.errs[device.Token]
}

func (f *fakePusher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// mockFanOuter records push requests.
type mockFanOuter struct {
	mock.Mock
}

func (m *mockFanOuter) FanOut(ctx context.Context, req model.PushRequest) (*model.DeliveryReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryReport), args.Error(1)
}
