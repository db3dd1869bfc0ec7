package v1

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"finparser/internal/inference"
	"finparser/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := NewHandler(st, inference.NewRegistry(inference.Options{}))
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetStatus(t *testing.T) {
	r, st := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Initialized || resp.DatasetCount != 0 {
		t.Fatalf("resp=%+v", resp)
	}

	if err := st.InsertDataset(&store.Dataset{ID: "ds-1", Name: "f", Sheet: "s"}); err != nil {
		t.Fatalf("insert dataset: %v", err)
	}
	w = doJSON(t, r, http.MethodGet, "/api/status", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Initialized || resp.DatasetCount != 1 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestParseAmountEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/parse/amount", ParseRequest{Value: "₹1,23,456.78"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["value"] != "123456.78" || resp["currency"] != "INR" || resp["format"] != "Indian-grouping" {
		t.Fatalf("resp=%v", resp)
	}

	// 指定格式即承诺，不匹配返回 422
	w = doJSON(t, r, http.MethodPost, "/api/parse/amount", ParseRequest{Value: "1.234,56", Format: "US-currency"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["reason"] != "FORMAT_MISMATCH" {
		t.Fatalf("resp=%v", resp)
	}
}

func TestParseDateEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/parse/date", ParseRequest{Value: "03/04/2024"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["date"] != "2024-03-04" || resp["ambiguous"] != true {
		t.Fatalf("resp=%v", resp)
	}

	w = doJSON(t, r, http.MethodPost, "/api/parse/date", ParseRequest{Value: "44927", Format: "excel-serial-date"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["date"] != "2023-01-01" {
		t.Fatalf("resp=%v", resp)
	}
}

func TestImportAndQueryFlow(t *testing.T) {
	r, st := newTestRouter(t)

	// 构造上传的工作簿
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"txn_date", "amount", "category"},
		{"2024-01-05", "$100.00", "ops"},
		{"2024-01-06", "$250.50", "travel"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	wbBuf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "ledger.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(wbBuf.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"type":"done"`) {
		t.Fatalf("missing done event: %s", w.Body.String())
	}

	datasets, err := st.ListDatasets()
	if err != nil || len(datasets) != 1 {
		t.Fatalf("datasets=%v err=%v", datasets, err)
	}
	id := datasets[0].ID

	// 列元信息
	w = doJSON(t, r, http.MethodGet, "/api/datasets/"+id+"/columns", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var colResp struct {
		Columns []store.ColumnMeta `json:"columns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &colResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(colResp.Columns) != 3 || colResp.Columns[0].Type != "date" || colResp.Columns[1].Type != "number" {
		t.Fatalf("columns=%+v", colResp.Columns)
	}
	if colResp.Columns[2].Type != "string" {
		t.Fatalf("columns=%+v", colResp.Columns)
	}

	// 数值范围查询
	col := 1
	min := "200"
	w = doJSON(t, r, http.MethodPost, "/api/datasets/"+id+"/query", QueryRequest{Column: &col, MinNumber: &min})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var queryResp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &queryResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if queryResp.Count != 1 {
		t.Fatalf("count=%d body=%s", queryResp.Count, w.Body.String())
	}

	// 聚合
	w = doJSON(t, r, http.MethodPost, "/api/datasets/"+id+"/aggregate", AggregateRequest{Column: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var aggResp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &aggResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if aggResp["sum"] != "350.5" {
		t.Fatalf("agg=%v", aggResp)
	}

	// 按分类列分组聚合
	groupBy := 2
	w = doJSON(t, r, http.MethodPost, "/api/datasets/"+id+"/aggregate", AggregateRequest{Column: 1, GroupBy: &groupBy})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var groupResp struct {
		Groups []struct {
			Key string `json:"key"`
			Sum string `json:"sum"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &groupResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(groupResp.Groups) != 2 {
		t.Fatalf("groups=%+v", groupResp.Groups)
	}
	if groupResp.Groups[0].Key != "ops" || groupResp.Groups[0].Sum != "100" {
		t.Fatalf("groups=%+v", groupResp.Groups)
	}
	if groupResp.Groups[1].Key != "travel" || groupResp.Groups[1].Sum != "250.5" {
		t.Fatalf("groups=%+v", groupResp.Groups)
	}

	// 缺失数据集返回 404
	w = doJSON(t, r, http.MethodGet, "/api/datasets/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}
