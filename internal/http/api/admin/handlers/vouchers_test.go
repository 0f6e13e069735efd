package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/voucher"
	"gorm.io/gorm"
)

func voucherRouter(conn *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewVoucherAdminHandler(conn, voucher.NewIssuer())
	router := gin.New()
	router.GET("/v0/admin/vouchers", handler.List)
	router.POST("/v0/admin/vouchers", handler.CounterIssue)
	router.POST("/v0/admin/vouchers/:code/redeem", handler.Redeem)
	return router
}

func TestCounterIssueMintsCTRVoucher(t *testing.T) {
	conn := setupAdminDB(t)
	router := voucherRouter(conn)

	collected := 100.0
	returned := 50.0
	body, _ := json.Marshal(map[string]any{
		"passport":         map[string]any{"passport_number": "P900", "surname": "Kila", "given_name": "Peter"},
		"amount":           50,
		"payment_method":   "cash",
		"collected_amount": collected,
		"returned_amount":  returned,
	})
	req := httptest.NewRequest(http.MethodPost, "/v0/admin/vouchers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Code            string   `json:"code"`
		PassportNumber  string   `json:"passport_number"`
		CustomerName    string   `json:"customer_name"`
		CollectedAmount *float64 `json:"collected_amount"`
		State           string   `json:"state"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if !strings.HasPrefix(resp.Code, voucher.PrefixCounter) {
		t.Fatalf("expected counter prefix, got %q", resp.Code)
	}
	if resp.PassportNumber != "P900" || resp.CustomerName != "Kila, Peter" {
		t.Fatalf("unexpected passport snapshot: %s", w.Body.String())
	}
	if resp.CollectedAmount == nil || *resp.CollectedAmount != collected {
		t.Fatalf("expected collected amount persisted, got %s", w.Body.String())
	}
	if resp.State != voucher.StateValid {
		t.Fatalf("expected freshly minted voucher to be valid, got %q", resp.State)
	}

	var passports int64
	if errCount := conn.Model(&models.Passport{}).Where("passport_number = ?", "P900").Count(&passports).Error; errCount != nil {
		t.Fatalf("count passports: %v", errCount)
	}
	if passports != 1 {
		t.Fatalf("expected passport row, got %d", passports)
	}
}

func TestRedeemIsOneWay(t *testing.T) {
	conn := setupAdminDB(t)
	router := voucherRouter(conn)

	now := time.Now().UTC()
	seed := models.Voucher{
		Code:           "CTRSCAN1",
		PassportNumber: "P901",
		Amount:         50,
		PaymentMethod:  "cash",
		ValidFrom:      now.Add(-time.Hour),
		ValidUntil:     now.AddDate(0, 0, 30),
	}
	if errCreate := conn.Create(&seed).Error; errCreate != nil {
		t.Fatalf("seed voucher: %v", errCreate)
	}

	req := httptest.NewRequest(http.MethodPost, "/v0/admin/vouchers/CTRSCAN1/redeem", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		State  string     `json:"state"`
		UsedAt *time.Time `json:"used_at"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.State != voucher.StateUsed || resp.UsedAt == nil {
		t.Fatalf("expected used voucher, got %s", w.Body.String())
	}
	firstUsedAt := *resp.UsedAt

	again := httptest.NewRequest(http.MethodPost, "/v0/admin/vouchers/CTRSCAN1/redeem", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, again)
	if w2.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second scan, got %d: %s", w2.Code, w2.Body.String())
	}

	var row models.Voucher
	if errFind := conn.Where("code = ?", "CTRSCAN1").First(&row).Error; errFind != nil {
		t.Fatalf("reload voucher: %v", errFind)
	}
	if row.UsedAt == nil || !row.UsedAt.Equal(firstUsedAt) {
		t.Fatalf("expected used_at to stay %v, got %v", firstUsedAt, row.UsedAt)
	}
}

func TestRedeemRejectsExpiredVoucher(t *testing.T) {
	conn := setupAdminDB(t)
	router := voucherRouter(conn)

	now := time.Now().UTC()
	seed := models.Voucher{
		Code:           "CTROLD1",
		PassportNumber: "P902",
		Amount:         50,
		PaymentMethod:  "cash",
		ValidFrom:      now.AddDate(0, 0, -60),
		ValidUntil:     now.AddDate(0, 0, -30),
	}
	if errCreate := conn.Create(&seed).Error; errCreate != nil {
		t.Fatalf("seed voucher: %v", errCreate)
	}

	req := httptest.NewRequest(http.MethodPost, "/v0/admin/vouchers/CTROLD1/redeem", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var resp struct {
		State string `json:"state"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.State != voucher.StateExpired {
		t.Fatalf("expected expired state, got %q", resp.State)
	}
}

func TestVoucherListFilters(t *testing.T) {
	conn := setupAdminDB(t)
	router := voucherRouter(conn)

	now := time.Now().UTC()
	used := now.Add(-time.Hour)
	rows := []models.Voucher{
		{Code: "ONLAAA1", PassportNumber: "P1", Amount: 50, PaymentMethod: "card", ValidFrom: now, ValidUntil: now.AddDate(0, 0, 30)},
		{Code: "CTRBBB1", PassportNumber: "P2", Amount: 50, PaymentMethod: "cash", ValidFrom: now, ValidUntil: now.AddDate(0, 0, 30), UsedAt: &used},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("seed voucher: %v", errCreate)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v0/admin/vouchers?used=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Vouchers []struct {
			Code string `json:"code"`
		} `json:"vouchers"`
		Total int64 `json:"total"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Total != 1 || len(resp.Vouchers) != 1 || resp.Vouchers[0].Code != "CTRBBB1" {
		t.Fatalf("expected only the used voucher, got %s", w.Body.String())
	}
}
