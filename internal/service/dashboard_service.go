package service

import (
	"context"
	"time"

	"invoicing-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardResponse struct {
	InvoicesByStatus map[string]int64  `json:"invoices_by_status"`
	PaidRevenue      string            `json:"paid_revenue"`
	OutstandingTotal string            `json:"outstanding_total"` // sent + overdue
	OverdueCount     int64             `json:"overdue_count"`
	RecentInvoices   []InvoiceResponse `json:"recent_invoices"`
}

// DashboardService aggregates read-only figures for the back-office start
// page. It queries the database directly; nothing here mutates state.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

func (s *DashboardService) GetDashboard(ctx context.Context) (DashboardResponse, error) {
	resp := DashboardResponse{
		InvoicesByStatus: make(map[string]int64),
		PaidRevenue:      "0.00",
		OutstandingTotal: "0.00",
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	err := s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return DashboardResponse{}, err
	}
	for _, c := range counts {
		resp.InvoicesByStatus[c.Status] = c.Count
		if c.Status == string(model.StatusOverdue) {
			resp.OverdueCount = c.Count
		}
	}

	var paid decimal.NullDecimal
	err = s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Select("sum(total)").
		Where("status = ?", model.StatusPaid).
		Scan(&paid).Error
	if err != nil {
		return DashboardResponse{}, err
	}
	if paid.Valid {
		resp.PaidRevenue = paid.Decimal.StringFixed(2)
	}

	var outstanding decimal.NullDecimal
	err = s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Select("sum(total)").
		Where("status IN ?", []model.InvoiceStatus{model.StatusSent, model.StatusOverdue}).
		Scan(&outstanding).Error
	if err != nil {
		return DashboardResponse{}, err
	}
	if outstanding.Valid {
		resp.OutstandingTotal = outstanding.Decimal.StringFixed(2)
	}

	var recent []model.Invoice
	err = s.db.WithContext(ctx).
		Preload("Client").
		Order("created_at desc").
		Limit(5).
		Find(&recent).Error
	if err != nil {
		return DashboardResponse{}, err
	}

	now := time.Now()
	for i := range recent {
		inv := &recent[i]
		item := InvoiceResponse{
			ID:            inv.ID.String(),
			InvoiceNumber: inv.InvoiceNumber,
			ClientID:      inv.ClientID.String(),
			Status:        string(inv.Status),
			IsOverdue:     inv.IsOverdue(now),
			Currency:      inv.Currency,
			Subtotal:      inv.Subtotal.StringFixed(2),
			TaxTotal:      inv.TaxTotal.StringFixed(2),
			DiscountTotal: inv.DiscountTotal.StringFixed(2),
			Total:         inv.Total.StringFixed(2),
			CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
		}
		if inv.Client != nil {
			item.ClientName = inv.Client.Name
		}
		resp.RecentInvoices = append(resp.RecentInvoices, item)
	}

	return resp, nil
}
