package store

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/mocks"
	"github.com/jhsoft/ws02-gateway/src/internal/model"
)

type hostMap map[string]domain.HostEndpoint

func (h hostMap) Lookup(code string) (domain.HostEndpoint, bool) {
	e, ok := h[code]
	return e, ok
}

var testHosts = hostMap{
	"WS01": {Code: "WS01", Name: "Middle01", Address: "192.168.222.136", SSHPort: 22},
	"WS02": {Code: "WS02", Name: "Middle02", Address: "192.168.222.138", SSHPort: 22},
}

func newStore(t *testing.T, opts Options, fixtures ...mocks.APIFixture) (*Store, *gorm.DB) {
	t.Helper()
	db := mocks.NewMetadataDB(t)
	for _, f := range fixtures {
		f.Seed(t, db)
	}
	return New(db, testHosts, opts), db
}

func TestResolve_MultipleAPI(t *testing.T) {
	s, _ := newStore(t, Options{}, mocks.MultipleAPIFixture())

	def, err := s.Resolve(context.Background(), "T2T_01_MULTIPLE_API")
	require.NoError(t, err)

	assert.Equal(t, "P0001", def.ID)
	assert.Equal(t, domain.ExecSQL, def.Kind)
	assert.Equal(t, "ERP", def.Connection)
	assert.Equal(t, domain.ActionQuery, def.ActionType)
	assert.Equal(t, "T2T_01_MULTIPLE", def.SyntaxKey)
	assert.False(t, def.Encode)

	require.Len(t, def.Outputs, 1)
	assert.Equal(t, []string{"ORDER_NO", "ORDER_DATE", "AMOUNT"}, def.Outputs[0].Fields)

	require.Len(t, def.IPRules, 2)
	require.Len(t, def.Hosts, 2)
	assert.Equal(t, "WS01", def.Hosts[0].HostCode)
	assert.Equal(t, "Middle01", def.Hosts[0].Endpoint.Name)
	assert.True(t, def.Hosts[1].Enabled)

	require.Len(t, def.Fields, 1)
	assert.Equal(t, "date", def.Fields[0].Name)
	assert.Equal(t, "2024-01-01", def.Fields[0].Default)
	require.NotNil(t, def.Fields[0].Matcher)
	assert.True(t, def.Fields[0].Matcher.Match("2024-01-01"))
}

func TestResolve_OrdersAndDefaults(t *testing.T) {
	s, _ := newStore(t, Options{}, mocks.NestedAPIFixture())

	def, err := s.Resolve(context.Background(), "T2T_02_ORDER_LINES")
	require.NoError(t, err)

	assert.True(t, def.Encode)
	assert.Equal(t, domain.ActionQuery, def.ActionType)
	require.Len(t, def.Outputs, 2)
	assert.Equal(t, "ORDER_NO", def.Outputs[1].ParentKey)
	assert.Equal(t, []string{"ORDER_NO", "CUSTOMER"}, def.Outputs[0].Fields)

	// disabled bindings stay visible
	require.Len(t, def.Hosts, 2)
	assert.False(t, def.Hosts[0].Enabled)

	require.Len(t, def.Fields, 2)
	assert.Equal(t, "from", def.Fields[0].Name)
	assert.Nil(t, def.Fields[0].Matcher)
	assert.Equal(t, "customer", def.Fields[1].Name)
}

func TestResolve_NotFound(t *testing.T) {
	s, _ := newStore(t, Options{}, mocks.MultipleAPIFixture())

	for _, code := range []string{"NOPE", "", "  "} {
		_, err := s.Resolve(context.Background(), code)
		assert.True(t, stderrors.Is(err, errors.ErrNotFound), "code %q: %v", code, err)
	}
}

func TestResolve_ConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *mocks.APIFixture)
		issue  string
	}{
		{
			name:   "unknown execution kind",
			mutate: func(f *mocks.APIFixture) { f.Code.ExecType = "7" },
			issue:  "EXEC_TYPE",
		},
		{
			name: "level gap",
			mutate: func(f *mocks.APIFixture) {
				f.Formats = append(f.Formats, model.CodeFormat{CodeIDPK: f.Code.PK, ClassNum: 3, UpPKField: "ORDER_NO", DownPKField: "X", OutputField: "X"})
			},
			issue: "not contiguous",
		},
		{
			name: "parent key missing above",
			mutate: func(f *mocks.APIFixture) {
				f.Formats = append(f.Formats, model.CodeFormat{CodeIDPK: f.Code.PK, ClassNum: 2, UpPKField: "NOPE", DownPKField: "X", OutputField: "X"})
			},
			issue: "parent key",
		},
		{
			name:   "unknown host",
			mutate: func(f *mocks.APIFixture) { f.Hosts[1].WebServiceCode = "WS99" },
			issue:  "WS99",
		},
		{
			name:   "bad pattern",
			mutate: func(f *mocks.APIFixture) { f.Fields[0].RegDesc = "^([" },
			issue:  "date",
		},
		{
			name:   "bad ip rule",
			mutate: func(f *mocks.APIFixture) { f.IPs[0].AccessedIP = "300.1.1.1" },
			issue:  "ACCESSED_IP",
		},
		{
			name:   "no output levels",
			mutate: func(f *mocks.APIFixture) { f.Formats = nil },
			issue:  "no output levels",
		},
		{
			name:   "ssh action type on sql",
			mutate: func(f *mocks.APIFixture) { f.Code.ActionType = "TSV" },
			issue:  "ACTION_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mocks.MultipleAPIFixture()
			tt.mutate(&f)
			s, _ := newStore(t, Options{}, f)

			def, err := s.Resolve(context.Background(), f.Code.CodeID)
			assert.Nil(t, def)
			require.True(t, stderrors.Is(err, errors.ErrConfigInvalid), "got %v", err)

			var issues Issues
			require.True(t, stderrors.As(err, &issues))
			assert.Contains(t, issues.Error(), tt.issue)
		})
	}
}

func TestResolve_DuplicateCode(t *testing.T) {
	f := mocks.MultipleAPIFixture()
	s, db := newStore(t, Options{}, f)

	dup := f.Code
	dup.PK = "P0099"
	require.NoError(t, db.Create(&dup).Error)

	_, err := s.Resolve(context.Background(), f.Code.CodeID)
	assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
}

func TestResolve_CacheReturnsCopies(t *testing.T) {
	s, db := newStore(t, Options{CacheTTL: time.Minute, CacheSize: 8}, mocks.MultipleAPIFixture())
	ctx := context.Background()

	first, err := s.Resolve(ctx, "T2T_01_MULTIPLE_API")
	require.NoError(t, err)
	first.Outputs[0].Fields[0] = "MUTATED"
	first.Hosts = nil

	// rows changed underneath are not seen until invalidated
	require.NoError(t, db.Model(&model.CodeList{}).Where("PK = ?", "P0001").Update("API_DESC", "changed").Error)

	second, err := s.Resolve(ctx, "T2T_01_MULTIPLE_API")
	require.NoError(t, err)
	assert.Equal(t, "ORDER_NO", second.Outputs[0].Fields[0])
	assert.Len(t, second.Hosts, 2)
	assert.Equal(t, "Daily order summary", second.Description)

	s.Invalidate("T2T_01_MULTIPLE_API")
	third, err := s.Resolve(ctx, "T2T_01_MULTIPLE_API")
	require.NoError(t, err)
	assert.Equal(t, "changed", third.Description)
}

func TestResolve_NoCacheReadsEveryTime(t *testing.T) {
	s, db := newStore(t, Options{CacheTTL: 0}, mocks.MultipleAPIFixture())
	ctx := context.Background()

	_, err := s.Resolve(ctx, "T2T_01_MULTIPLE_API")
	require.NoError(t, err)

	require.NoError(t, db.Where("CODE_ID_PK = ?", "P0001").Delete(&model.CodeIPRelation{}).Error)

	def, err := s.Resolve(ctx, "T2T_01_MULTIPLE_API")
	require.NoError(t, err)
	assert.Empty(t, def.IPRules)
}

func TestResolve_Concurrent(t *testing.T) {
	s, _ := newStore(t, Options{CacheTTL: time.Minute}, mocks.MultipleAPIFixture())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			def, err := s.Resolve(context.Background(), "T2T_01_MULTIPLE_API")
			if err == nil && def.Code != "T2T_01_MULTIPLE_API" {
				err = stderrors.New("wrong definition")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestListCodesAndFlows(t *testing.T) {
	s, db := newStore(t, Options{}, mocks.MultipleAPIFixture(), mocks.NestedAPIFixture())
	ctx := context.Background()

	codes, err := s.ListCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"T2T_01_MULTIPLE_API", "T2T_02_ORDER_LINES"}, codes)

	require.NoError(t, db.Create(&[]model.FlowList{
		{PK: "F1", FlowID: "FI_DAILY", FlowHelp: "Daily batch"},
		{PK: "F2", FlowID: "FIX_OTHER", FlowHelp: "Not a batch flow"},
	}).Error)
	require.NoError(t, db.Create(&[]model.FlowSchedule{
		{FlowIDPK: "F1", ClassNum: 2, CallCodeID: "T2T_02_ORDER_LINES"},
		{FlowIDPK: "F1", ClassNum: 1, CallCodeID: "T2T_01_MULTIPLE_API"},
	}).Error)

	flows, err := s.ListFlows(ctx, DefaultFlowPrefix)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "FI_DAILY", flows[0].ID)
	assert.Equal(t, []domain.FlowStep{
		{Position: 1, Code: "T2T_01_MULTIPLE_API"},
		{Position: 2, Code: "T2T_02_ORDER_LINES"},
	}, flows[0].Steps)

	all, err := s.ListFlows(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.NoError(t, s.Ping(ctx))
}
