package mocks

import (
	"testing"

	"gorm.io/gorm"

	"github.com/jhsoft/ws02-gateway/src/internal/database"
	"github.com/jhsoft/ws02-gateway/src/internal/model"
)

// NewMetadataDB opens an in-memory SQLite database with every JH_WS02_* table
// created. The pool is pinned to one connection so all queries see the same
// in-memory database.
func NewMetadataDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(":memory:", database.Options{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate metadata tables: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// APIFixture is the full row set of one API definition.
type APIFixture struct {
	Code    model.CodeList
	Formats []model.CodeFormat
	IPs     []model.CodeIPRelation
	Hosts   []model.CodeWSRelation
	Fields  []model.CodeRangeAnalysis
}

// Seed inserts every row of the fixture.
func (f APIFixture) Seed(t testing.TB, db *gorm.DB) {
	t.Helper()
	create := func(rows interface{}, n int) {
		if n == 0 {
			return
		}
		if err := db.Create(rows).Error; err != nil {
			t.Fatalf("failed to seed %s: %v", f.Code.CodeID, err)
		}
	}
	create(&f.Code, 1)
	create(&f.Formats, len(f.Formats))
	create(&f.IPs, len(f.IPs))
	create(&f.Hosts, len(f.Hosts))
	create(&f.Fields, len(f.Fields))
}

// MultipleAPIFixture is T2T_01_MULTIPLE_API: a single-level SQL query with one
// date parameter, reachable from loopback and the 10.0.0.0/8 network, bound
// to WS01 then WS02.
func MultipleAPIFixture() APIFixture {
	const pk = "P0001"
	return APIFixture{
		Code: model.CodeList{
			PK:         pk,
			CodeID:     "T2T_01_MULTIPLE_API",
			APIDesc:    "Daily order summary",
			CodeHelp:   "Returns the orders booked on the given date",
			ExecType:   "0",
			JNDIUse:    "ERP",
			ActionType: "QUERY",
			SQLPropKey: "T2T_01_MULTIPLE",
			IsEncode:   "N",
		},
		Formats: []model.CodeFormat{
			{CodeIDPK: pk, ClassNum: 1, OutputField: "ORDER_NO,ORDER_DATE,AMOUNT"},
		},
		IPs: []model.CodeIPRelation{
			{CodeIDPK: pk, AccessedIP: "127.0.0.1", AccessedDesc: "loopback"},
			{CodeIDPK: pk, AccessedIP: "10.0.0.0/8", AccessedDesc: "intranet"},
		},
		Hosts: []model.CodeWSRelation{
			{CodeIDPK: pk, ClassNum: 1, WebServiceCode: "WS01", IsDoing: "Y"},
			{CodeIDPK: pk, ClassNum: 2, WebServiceCode: "WS02", IsDoing: "Y"},
		},
		Fields: []model.CodeRangeAnalysis{
			{CodeIDPK: pk, FormatIdx: 1, InputField: "date", InputDefaultVal: "2024-01-01", RegDesc: `^\d{4}-\d{2}-\d{2}$`},
		},
	}
}

// NestedAPIFixture is a two-level SQL query: orders with their lines.
func NestedAPIFixture() APIFixture {
	const pk = "P0002"
	return APIFixture{
		Code: model.CodeList{
			PK:         pk,
			CodeID:     "T2T_02_ORDER_LINES",
			APIDesc:    "Orders with lines",
			ExecType:   "SQL",
			JNDIUse:    "ERP",
			SQLPropKey: "T2T_02_ORDER_LINES",
			IsEncode:   "Y",
		},
		Formats: []model.CodeFormat{
			{CodeIDPK: pk, ClassNum: 1, OutputField: "ORDER_NO, CUSTOMER"},
			{CodeIDPK: pk, ClassNum: 2, UpPKField: "ORDER_NO", DownPKField: "ORDER_NO", OutputField: "LINE_NO,ITEM,QTY"},
		},
		IPs: []model.CodeIPRelation{
			{CodeIDPK: pk, AccessedIP: "*", AccessedDesc: "everyone"},
		},
		Hosts: []model.CodeWSRelation{
			{CodeIDPK: pk, ClassNum: 1, WebServiceCode: "WS02", IsDoing: "N"},
			{CodeIDPK: pk, ClassNum: 2, WebServiceCode: "WS01", IsDoing: "Y"},
		},
		Fields: []model.CodeRangeAnalysis{
			{CodeIDPK: pk, FormatIdx: 2, InputField: "customer", RegDesc: "validate:required,alphanum"},
			{CodeIDPK: pk, FormatIdx: 1, InputField: "from", InputDefaultVal: "2024-01-01", RegDesc: "start date"},
		},
	}
}
