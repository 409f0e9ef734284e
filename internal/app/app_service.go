package app

import (
	"context"
	"io"

	"vendor-pipeline/internal/core"
)

type appService struct {
	store         core.OrderStore
	acks          core.AcknowledgmentService
	consolidation core.ConsolidationService
	invoices      core.InvoiceService
	remittances   core.RemittanceService
	chargebacks   core.ChargebackService
	users         core.UserService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	store core.OrderStore,
	acks core.AcknowledgmentService,
	consolidation core.ConsolidationService,
	invoices core.InvoiceService,
	remittances core.RemittanceService,
	chargebacks core.ChargebackService,
	users core.UserService,
) ApplicationService {
	return &appService{
		store:         store,
		acks:          acks,
		consolidation: consolidation,
		invoices:      invoices,
		remittances:   remittances,
		chargebacks:   chargebacks,
		users:         users,
	}
}

func (s *appService) ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error) {
	filter := core.OrderFilter{
		Marketplace:    req.Marketplace,
		State:          core.OrderState(req.State),
		ShipmentStatus: core.ShipmentStatus(req.ShipmentStatus),
		Acknowledged:   req.Acknowledged,
		Stat:           core.OrderStat(req.Stat),
	}
	orders, err := s.store.List(ctx, filter, core.Page{Limit: req.Limit, Skip: req.Skip})
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders, Total: total}, nil
}

func (s *appService) GetOrder(ctx context.Context, orderNumber string) (*OrderResult, error) {
	order, err := s.store.Get(ctx, core.OrderNumber(orderNumber))
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) AcknowledgeOrder(ctx context.Context, req AcknowledgeRequest) (*OrderResult, error) {
	order, err := s.acks.AutoFill(ctx, core.OrderNumber(req.OrderNumber), core.AckOptions{
		AllowOverwrite: req.AllowOverwrite,
		StatusCode:     req.StatusCode,
		SkipTransmit:   req.SkipTransmit,
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ApplyAcknowledgment(ctx context.Context, req ManualAcknowledgeRequest) (*OrderResult, error) {
	lines := make([]core.ManualLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.ManualLine{
			SequenceNumber: l.SequenceNumber,
			AcknowledgeQty: l.AcknowledgeQty,
			BackorderQty:   l.BackorderQty,
		}
	}
	order, err := s.acks.Apply(ctx, core.OrderNumber(req.OrderNumber), lines, core.AckOptions{
		AllowOverwrite: req.AllowOverwrite,
		StatusCode:     req.StatusCode,
		SkipTransmit:   req.SkipTransmit,
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) AcknowledgePendingOrders(ctx context.Context, limit int) (*core.BatchResult, error) {
	return s.acks.AcknowledgePending(ctx, limit)
}

func (s *appService) ListConsolidationGroups(ctx context.Context, marketplace string) (*GroupListResult, error) {
	groups, err := s.consolidation.Groups(ctx, marketplace)
	if err != nil {
		return nil, err
	}
	return &GroupListResult{Groups: groups}, nil
}

func (s *appService) GetConsolidationGroup(ctx context.Context, marketplace, destinationCode, windowEndDate string) (*core.GroupDetail, error) {
	return s.consolidation.GroupDetail(ctx, marketplace, core.GroupKey{
		DestinationCode: destinationCode,
		WindowEndDate:   windowEndDate,
	})
}

func (s *appService) ValidateInvoice(ctx context.Context, orderNumber string, invoiceID int) (*core.ValidationResult, error) {
	return s.invoices.Validate(ctx, core.OrderNumber(orderNumber), invoiceID)
}

func (s *appService) SubmitInvoice(ctx context.Context, req SubmitInvoiceRequest) (*core.SubmitResult, error) {
	return s.invoices.Submit(ctx, core.OrderNumber(req.OrderNumber), core.SubmitOptions{
		InvoiceID:      req.InvoiceID,
		DryRun:         req.DryRun,
		SkipValidation: req.SkipValidation,
		ForceSubmit:    req.ForceSubmit,
	})
}

func (s *appService) SubmitPendingInvoices(ctx context.Context, limit int) (*core.BatchResult, error) {
	return s.invoices.SubmitPending(ctx, limit)
}

func (s *appService) GetInvoice(ctx context.Context, invoiceNumber string) (*core.Invoice, error) {
	return s.invoices.Get(ctx, core.InvoiceNumber(invoiceNumber))
}

func (s *appService) ImportRemittance(ctx context.Context, file core.RemittanceFile) (*core.ImportResult, error) {
	return s.remittances.Import(ctx, file)
}

func (s *appService) UpsertChargeback(ctx context.Context, req ChargebackRequest) (*core.Chargeback, error) {
	input := core.ChargebackInput{
		ChargebackRef: req.ChargebackRef,
		Type:          req.Type,
		Amount:        req.Amount,
	}
	if req.OrderNumber != "" {
		on := core.OrderNumber(req.OrderNumber)
		input.OrderNumber = &on
	}
	return s.chargebacks.Upsert(ctx, input)
}

func (s *appService) GetChargeback(ctx context.Context, id int) (*core.Chargeback, error) {
	return s.chargebacks.Get(ctx, id)
}

func (s *appService) ListChargebacks(ctx context.Context, status string, limit, skip int) (*ChargebackListResult, error) {
	chargebacks, err := s.chargebacks.List(ctx, core.DisputeStatus(status), core.Page{Limit: limit, Skip: skip})
	if err != nil {
		return nil, err
	}
	return &ChargebackListResult{Chargebacks: chargebacks}, nil
}

func (s *appService) UpdateChargebackDispute(ctx context.Context, id int, status, note string) (*core.Chargeback, error) {
	return s.chargebacks.UpdateDisputeStatus(ctx, id, core.DisputeStatus(status), note)
}

func (s *appService) ImportChargebacksCSV(ctx context.Context, r io.Reader) (*core.CSVImportResult, error) {
	return s.chargebacks.ImportCSV(ctx, r)
}

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}
