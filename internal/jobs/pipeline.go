package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vendor-pipeline/internal/core"
)

// pollLookback bounds the change window on each poll. Wide on purpose:
// re-fetching an order is harmless, missing one is not.
const pollLookback = 48 * time.Hour

// remittanceLookback is wider still: the partner publishes remittance files
// on its own payment cycle, and re-importing a known batch is a no-op.
const remittanceLookback = 30 * 24 * time.Hour

const batchLimit = 100

// Pipeline bundles the recurring work against the trading partner.
type Pipeline struct {
	logger      *zap.Logger
	store       core.OrderStore
	source      core.OrderSource
	acks        core.AcknowledgmentService
	invoices    core.InvoiceService
	remitSource core.RemittanceSource
	remits      core.RemittanceService
	erpCreator  core.ERPOrderCreator
}

func NewPipeline(
	logger *zap.Logger,
	store core.OrderStore,
	source core.OrderSource,
	acks core.AcknowledgmentService,
	invoices core.InvoiceService,
	remitSource core.RemittanceSource,
	remits core.RemittanceService,
	erpCreator core.ERPOrderCreator,
) *Pipeline {
	return &Pipeline{
		logger:      logger,
		store:       store,
		source:      source,
		acks:        acks,
		invoices:    invoices,
		remitSource: remitSource,
		remits:      remits,
		erpCreator:  erpCreator,
	}
}

// PollOrders fetches recently changed orders and merges them into the store.
func (p *Pipeline) PollOrders(ctx context.Context) error {
	since := time.Now().Add(-pollLookback)
	orders, err := p.source.FetchOrders(ctx, since)
	if err != nil {
		return err
	}

	var failed int
	for i := range orders {
		if err := p.store.Upsert(ctx, &orders[i]); err != nil {
			failed++
			p.logger.Error("order upsert failed",
				zap.String("order_number", string(orders[i].OrderNumber)),
				zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d orders failed to upsert", failed, len(orders))
	}
	p.logger.Info("order poll complete", zap.Int("orders", len(orders)))
	return nil
}

// AcknowledgePending auto-acknowledges the oldest unacknowledged orders.
func (p *Pipeline) AcknowledgePending(ctx context.Context) error {
	result, err := p.acks.AcknowledgePending(ctx, batchLimit)
	if err != nil {
		return err
	}
	p.logBatch("acknowledge pending", result)
	return nil
}

// SubmitPendingInvoices submits invoices for fully shipped orders.
func (p *Pipeline) SubmitPendingInvoices(ctx context.Context) error {
	result, err := p.invoices.SubmitPending(ctx, batchLimit)
	if err != nil {
		return err
	}
	p.logBatch("submit pending invoices", result)
	return nil
}

// PollRemittances downloads recently published remittance files and runs
// each through the matcher. Already-imported batches resolve as no-ops, so
// the wide lookback only costs the fetch.
func (p *Pipeline) PollRemittances(ctx context.Context) error {
	since := time.Now().Add(-remittanceLookback)
	files, err := p.remitSource.FetchRemittances(ctx, since)
	if err != nil {
		return err
	}

	var failed, imported, known int
	for i := range files {
		result, err := p.remits.Import(ctx, files[i])
		if err != nil {
			failed++
			p.logger.Error("remittance import failed",
				zap.String("payment_number", string(files[i].PaymentNumber)),
				zap.Error(err))
			continue
		}
		if result.AlreadyImported {
			known++
			continue
		}
		imported++
		p.logger.Info("remittance imported",
			zap.String("payment_number", string(result.PaymentNumber)),
			zap.Int("matched", result.MatchedCount),
			zap.Int("unmatched", result.UnmatchedCount),
			zap.Int("other", result.OtherCount))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d remittances failed to import", failed, len(files))
	}
	if imported > 0 || known > 0 {
		p.logger.Info("remittance poll complete",
			zap.Int("imported", imported),
			zap.Int("already_imported", known))
	}
	return nil
}

// SyncERPOrders creates the internal sales order for every acknowledged
// purchase order not linked yet. SetERPLink refuses overwrites, so a crash
// between create and link at worst retries the create; the ERP side
// deduplicates on the order number.
func (p *Pipeline) SyncERPOrders(ctx context.Context) error {
	yes := true
	pending, err := p.store.List(ctx, core.OrderFilter{
		Acknowledged:   &yes,
		MissingERPLink: true,
	}, core.Page{Limit: batchLimit})
	if err != nil {
		return err
	}

	var failed int
	for i := range pending {
		order, err := p.store.Get(ctx, pending[i].OrderNumber)
		if err != nil {
			failed++
			p.logger.Error("load order for ERP sync failed",
				zap.String("order_number", string(pending[i].OrderNumber)),
				zap.Error(err))
			continue
		}
		erpID, erpRef, err := p.erpCreator.CreateSalesOrder(ctx, order)
		if err != nil {
			failed++
			p.logger.Error("ERP sales order creation failed",
				zap.String("order_number", string(order.OrderNumber)),
				zap.Error(err))
			continue
		}
		if err := p.store.SetERPLink(ctx, order.OrderNumber, erpID, erpRef); err != nil {
			failed++
			p.logger.Error("ERP link write failed",
				zap.String("order_number", string(order.OrderNumber)),
				zap.Int("erp_order_id", erpID),
				zap.Error(err))
			continue
		}
		p.logger.Info("ERP sales order created",
			zap.String("order_number", string(order.OrderNumber)),
			zap.Int("erp_order_id", erpID),
			zap.String("erp_order_ref", erpRef))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ERP syncs failed", failed, len(pending))
	}
	return nil
}

func (p *Pipeline) logBatch(name string, result *core.BatchResult) {
	if result.Processed == 0 {
		return
	}
	p.logger.Info(name,
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	for _, item := range result.Items {
		if item.Error != "" {
			p.logger.Warn(name+" item failed",
				zap.String("order_number", string(item.OrderNumber)),
				zap.String("error", item.Error))
		}
	}
}
