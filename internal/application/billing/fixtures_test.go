package billing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appserial "github.com/tradeledger/backend/internal/application/serial"
	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/inventory"
	"github.com/tradeledger/backend/internal/domain/partner"
	"github.com/tradeledger/backend/internal/domain/serial"
	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/domain/trade"
)

// memStore is an in-memory stand-in for the relational store, shared by all
// fake repositories in one test. Entities are stored by pointer so domain
// mutations are visible to later reads, mirroring row updates.
type memStore struct {
	customers    map[uuid.UUID]*partner.Customer
	salesPersons map[uuid.UUID]*partner.SalesPerson
	warehouses   map[uuid.UUID]*partner.Warehouse
	orders       map[uuid.UUID]*trade.SalesOrder
	loans        map[uuid.UUID]*trade.LoanRequest
	invoices     map[uuid.UUID]*billing.Invoice
	payments     map[uuid.UUID]*billing.Payment
	txnLines     map[uuid.UUID]*billing.SalesTransactionLine
	batchLogs    map[uuid.UUID]*inventory.BatchLog
	products     map[uuid.UUID]*inventory.Product
	batches      map[uuid.UUID]*inventory.StockBatch
	counters     map[uuid.UUID]*serial.Counter
}

func newMemStore() *memStore {
	return &memStore{
		customers:    make(map[uuid.UUID]*partner.Customer),
		salesPersons: make(map[uuid.UUID]*partner.SalesPerson),
		warehouses:   make(map[uuid.UUID]*partner.Warehouse),
		orders:       make(map[uuid.UUID]*trade.SalesOrder),
		loans:        make(map[uuid.UUID]*trade.LoanRequest),
		invoices:     make(map[uuid.UUID]*billing.Invoice),
		payments:     make(map[uuid.UUID]*billing.Payment),
		txnLines:     make(map[uuid.UUID]*billing.SalesTransactionLine),
		batchLogs:    make(map[uuid.UUID]*inventory.BatchLog),
		products:     make(map[uuid.UUID]*inventory.Product),
		batches:      make(map[uuid.UUID]*inventory.StockBatch),
		counters:     make(map[uuid.UUID]*serial.Counter),
	}
}

// batchTotals sums the stored batch rows for one product, for assertions.
func (s *memStore) batchTotals(productID uuid.UUID) (inventory.BatchTotals, error) {
	totals := inventory.BatchTotals{OpeningStock: decimal.Zero, CommittedQuantity: decimal.Zero}
	for _, b := range s.batches {
		if b.ProductID == productID {
			totals.OpeningStock = totals.OpeningStock.Add(b.OpeningStock)
			totals.CommittedQuantity = totals.CommittedQuantity.Add(b.CommittedQuantity)
		}
	}
	return totals, nil
}

type memTxManager struct{}

func (memTxManager) InTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (memTxManager) InSerializableTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type memCustomerRepo struct{ store *memStore }

func (r memCustomerRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	c, ok := r.store.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r memCustomerRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r memCustomerRepo) Save(_ context.Context, customer *partner.Customer) error {
	r.store.customers[customer.ID] = customer
	return nil
}

type memSalesPersonRepo struct{ store *memStore }

func (r memSalesPersonRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*partner.SalesPerson, error) {
	sp, ok := r.store.salesPersons[id]
	if !ok || sp.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return sp, nil
}

func (r memSalesPersonRepo) Save(_ context.Context, sp *partner.SalesPerson) error {
	r.store.salesPersons[sp.ID] = sp
	return nil
}

type memWarehouseRepo struct{ store *memStore }

func (r memWarehouseRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*partner.Warehouse, error) {
	w, ok := r.store.warehouses[id]
	if !ok || w.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return w, nil
}

func (r memWarehouseRepo) FindByNameForTenant(_ context.Context, tenantID uuid.UUID, name string) (*partner.Warehouse, error) {
	for _, w := range r.store.warehouses {
		if w.TenantID == tenantID && w.Name == name {
			return w, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memWarehouseRepo) Save(_ context.Context, warehouse *partner.Warehouse) error {
	r.store.warehouses[warehouse.ID] = warehouse
	return nil
}

type memSalesOrderRepo struct{ store *memStore }

func (r memSalesOrderRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*trade.SalesOrder, error) {
	o, ok := r.store.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r memSalesOrderRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesOrder, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r memSalesOrderRepo) Save(_ context.Context, order *trade.SalesOrder) error {
	r.store.orders[order.ID] = order
	return nil
}

type memLoanRepo struct{ store *memStore }

func (r memLoanRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*trade.LoanRequest, error) {
	l, ok := r.store.loans[id]
	if !ok || l.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return l, nil
}

func (r memLoanRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.LoanRequest, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r memLoanRepo) Save(_ context.Context, loan *trade.LoanRequest) error {
	r.store.loans[loan.ID] = loan
	return nil
}

type memInvoiceRepo struct{ store *memStore }

func (r memInvoiceRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	inv, ok := r.store.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (r memInvoiceRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r memInvoiceRepo) FindBySerialForTenant(_ context.Context, tenantID uuid.UUID, serialNumber string) (*billing.Invoice, error) {
	for _, inv := range r.store.invoices {
		if inv.TenantID == tenantID && inv.SerialNumber == serialNumber {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.store.invoices[invoice.ID] = invoice
	return nil
}

func (r memInvoiceRepo) SumActiveTotalByCustomer(_ context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inv := range r.store.invoices {
		if inv.TenantID == tenantID && inv.CustomerID == customerID && !inv.IsCancelled() {
			total = total.Add(inv.TotalPrice)
		}
	}
	return total, nil
}

type memPaymentRepo struct{ store *memStore }

func (r memPaymentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*billing.Payment, error) {
	p, ok := r.store.payments[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r memPaymentRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*billing.Payment, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r memPaymentRepo) FindActiveByInvoice(_ context.Context, tenantID, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	var out []*billing.Payment
	for _, p := range r.store.payments {
		if p.TenantID == tenantID && p.InvoiceID == invoiceID && !p.IsCancelled() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPaymentRepo) Save(_ context.Context, payment *billing.Payment) error {
	r.store.payments[payment.ID] = payment
	return nil
}

func (r memPaymentRepo) SumActiveSettlementByCustomer(_ context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range r.store.payments {
		if p.TenantID == tenantID && p.CustomerID == customerID && p.CountsTowardPaymentTotal() {
			total = total.Add(p.AmountPaid)
		}
	}
	return total, nil
}

type memTxnLineRepo struct{ store *memStore }

func (r memTxnLineRepo) FindByKey(_ context.Context, tenantID, invoiceID, productID, warehouseID uuid.UUID) (*billing.SalesTransactionLine, error) {
	for _, l := range r.store.txnLines {
		if l.TenantID == tenantID && l.InvoiceID == invoiceID && l.ProductID == productID && l.WarehouseID == warehouseID {
			return l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memTxnLineRepo) Save(_ context.Context, line *billing.SalesTransactionLine) error {
	r.store.txnLines[line.ID] = line
	return nil
}

func (r memTxnLineRepo) DeleteByPayment(_ context.Context, tenantID, paymentID uuid.UUID) error {
	for id, l := range r.store.txnLines {
		if l.TenantID == tenantID && l.PaymentID == paymentID {
			delete(r.store.txnLines, id)
		}
	}
	return nil
}

type memBatchLogRepo struct{ store *memStore }

func (r memBatchLogRepo) FindPendingBySalesOrder(_ context.Context, tenantID, salesOrderID uuid.UUID) ([]inventory.BatchLog, error) {
	var out []inventory.BatchLog
	for _, l := range r.store.batchLogs {
		if l.TenantID == tenantID && l.IsPending() && l.SalesOrderID != nil && *l.SalesOrderID == salesOrderID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r memBatchLogRepo) FindPendingByLoanAndProduct(_ context.Context, tenantID, loanRequestID, productID uuid.UUID) ([]inventory.BatchLog, error) {
	var out []inventory.BatchLog
	for _, l := range r.store.batchLogs {
		if l.TenantID == tenantID && l.IsPending() && l.ProductID == productID &&
			l.LoanRequestID != nil && *l.LoanRequestID == loanRequestID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r memBatchLogRepo) FindPendingForInvoice(_ context.Context, tenantID, invoiceID uuid.UUID, salesOrderID, loanRequestID *uuid.UUID) ([]inventory.BatchLog, error) {
	var out []inventory.BatchLog
	for _, l := range r.store.batchLogs {
		if l.TenantID != tenantID || !l.IsPending() || l.InvoiceID == nil || *l.InvoiceID != invoiceID {
			continue
		}
		if salesOrderID != nil && (l.SalesOrderID == nil || *l.SalesOrderID != *salesOrderID) {
			continue
		}
		if loanRequestID != nil && (l.LoanRequestID == nil || *l.LoanRequestID != *loanRequestID) {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (r memBatchLogRepo) Save(_ context.Context, log *inventory.BatchLog) error {
	if existing, ok := r.store.batchLogs[log.ID]; ok {
		*existing = *log
		return nil
	}
	clone := *log
	r.store.batchLogs[log.ID] = &clone
	return nil
}

func (r memBatchLogRepo) DeletePendingByInvoice(_ context.Context, tenantID, invoiceID uuid.UUID) error {
	for id, l := range r.store.batchLogs {
		if l.TenantID == tenantID && l.IsPending() && l.InvoiceID != nil && *l.InvoiceID == invoiceID {
			delete(r.store.batchLogs, id)
		}
	}
	return nil
}

type memStockRepo struct{ store *memStore }

func (r memStockRepo) FindProductForTenant(_ context.Context, tenantID, productID uuid.UUID) (*inventory.Product, error) {
	p, ok := r.store.products[productID]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r memStockRepo) FindProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.Product, error) {
	return r.FindProductForTenant(ctx, tenantID, productID)
}

func (r memStockRepo) SaveProduct(_ context.Context, product *inventory.Product) error {
	r.store.products[product.ID] = product
	return nil
}

func (r memStockRepo) FindBatchesForUpdate(_ context.Context, tenantID, productID uuid.UUID, warehouseName string) ([]inventory.StockBatch, error) {
	var out []inventory.StockBatch
	for _, b := range r.store.batches {
		if b.TenantID == tenantID && b.ProductID == productID && b.WarehouseName == warehouseName {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memStockRepo) SaveBatch(_ context.Context, batch *inventory.StockBatch) error {
	if existing, ok := r.store.batches[batch.ID]; ok {
		*existing = *batch
		return nil
	}
	clone := *batch
	r.store.batches[batch.ID] = &clone
	return nil
}

func (r memStockRepo) SumBatchTotals(_ context.Context, tenantID, productID uuid.UUID) (inventory.BatchTotals, error) {
	totals := inventory.BatchTotals{OpeningStock: decimal.Zero, CommittedQuantity: decimal.Zero}
	for _, b := range r.store.batches {
		if b.TenantID == tenantID && b.ProductID == productID {
			totals.OpeningStock = totals.OpeningStock.Add(b.OpeningStock)
			totals.CommittedQuantity = totals.CommittedQuantity.Add(b.CommittedQuantity)
		}
	}
	return totals, nil
}

type memCounterRepo struct{ store *memStore }

func (r memCounterRepo) FindForUpdate(_ context.Context, tenantID uuid.UUID, module serial.Module, prefix string) (*serial.Counter, error) {
	for _, c := range r.store.counters {
		if c.TenantID == tenantID && c.Module == module && c.Prefix == prefix {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memCounterRepo) FindReservedByNumberForUpdate(_ context.Context, tenantID uuid.UUID, prefix string, number int64) (*serial.Counter, error) {
	for _, c := range r.store.counters {
		if c.TenantID == tenantID && c.Prefix == prefix && c.CurrentNumber == number && c.IsReserved {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memCounterRepo) Save(_ context.Context, counter *serial.Counter) error {
	r.store.counters[counter.ID] = counter
	return nil
}

// fixture wires every service against one shared memStore.
type fixture struct {
	store *memStore

	tenantID uuid.UUID

	serials      *appserial.Service
	ledger       *inventory.LedgerService
	balances     *BalanceService
	invoiceSvc   *InvoiceService
	paymentSvc   *PaymentService
	cancellation *CancellationService
}

func newFixture() *fixture {
	store := newMemStore()
	tx := memTxManager{}

	customers := memCustomerRepo{store}
	salesPersons := memSalesPersonRepo{store}
	warehouses := memWarehouseRepo{store}
	orders := memSalesOrderRepo{store}
	loans := memLoanRepo{store}
	invoices := memInvoiceRepo{store}
	payments := memPaymentRepo{store}
	txnLines := memTxnLineRepo{store}
	batchLogs := memBatchLogRepo{store}
	stock := memStockRepo{store}
	counters := memCounterRepo{store}

	serials := appserial.NewService(counters, tx, 0)
	ledger := inventory.NewLedgerService(stock)
	balances := NewBalanceService(customers, invoices, payments, tx, nil, nil)

	return &fixture{
		store:      store,
		tenantID:   uuid.New(),
		serials:    serials,
		ledger:     ledger,
		balances:   balances,
		invoiceSvc: NewInvoiceService(customers, salesPersons, orders, loans, invoices, batchLogs, ledger, serials, balances, tx),
		paymentSvc: NewPaymentService(customers, warehouses, invoices, payments, txnLines, batchLogs, balances, tx),
		cancellation: NewCancellationService(invoices, payments, txnLines, batchLogs,
			ledger, serials, balances, tx),
	}
}

func (f *fixture) seedCustomer() *partner.Customer {
	c, err := partner.NewCustomer(f.tenantID, "CUST1", "Adewale Trading")
	if err != nil {
		panic(err)
	}
	f.store.customers[c.ID] = c
	return c
}

func (f *fixture) seedSalesPerson() *partner.SalesPerson {
	sp, err := partner.NewSalesPerson(f.tenantID, "Bola", "bola@example.com")
	if err != nil {
		panic(err)
	}
	f.store.salesPersons[sp.ID] = sp
	return sp
}

func (f *fixture) seedWarehouse(name string) *partner.Warehouse {
	w, err := partner.NewWarehouse(f.tenantID, name, "Ikeja")
	if err != nil {
		panic(err)
	}
	f.store.warehouses[w.ID] = w
	return w
}

func (f *fixture) seedProduct(code string) *inventory.Product {
	p, err := inventory.NewProduct(f.tenantID, code, "Product "+code)
	if err != nil {
		panic(err)
	}
	f.store.products[p.ID] = p
	return p
}

// seedBatch creates a batch with the given committed quantity, aged so that
// successive calls produce strictly increasing CreatedAt values.
func (f *fixture) seedBatch(productID uuid.UUID, warehouse, number string, opening, committed decimal.Decimal, age time.Duration) *inventory.StockBatch {
	b, err := inventory.NewStockBatch(f.tenantID, productID, warehouse, number, opening, committed)
	if err != nil {
		panic(err)
	}
	b.CreatedAt = time.Now().Add(-age)
	f.store.batches[b.ID] = b

	if p, ok := f.store.products[productID]; ok {
		p.ApplyTotalStock(p.TotalStock.Add(opening).Add(committed))
	}
	return b
}

func (f *fixture) seedApprovedOrder(customerID uuid.UUID) *trade.SalesOrder {
	o, err := trade.NewSalesOrder(f.tenantID, "SO-0000001", customerID)
	if err != nil {
		panic(err)
	}
	if err := o.Approve(); err != nil {
		panic(err)
	}
	f.store.orders[o.ID] = o
	return o
}

func (f *fixture) seedOpenLoan(customerID, productID uuid.UUID, qty decimal.Decimal) *trade.LoanRequest {
	l, err := trade.NewLoanRequest(f.tenantID, "LN-0000001", customerID)
	if err != nil {
		panic(err)
	}
	if _, err := l.AddItem(productID, qty); err != nil {
		panic(err)
	}
	f.store.loans[l.ID] = l
	return l
}

func (f *fixture) seedReservedSerial(module serial.Module, prefix string) string {
	s, err := f.serials.Reserve(context.Background(), f.tenantID, module, prefix)
	if err != nil {
		panic(err)
	}
	return s
}

func (f *fixture) seedPendingOrderLog(productID, salesOrderID uuid.UUID, qty, price decimal.Decimal) *inventory.BatchLog {
	l := inventory.NewSalesOrderBatchLog(f.tenantID, productID, salesOrderID, qty, price)
	f.store.batchLogs[l.ID] = l
	return l
}

func (f *fixture) seedPendingLoanLog(productID, loanRequestID uuid.UUID, qty, price decimal.Decimal) *inventory.BatchLog {
	l := inventory.NewLoanBatchLog(f.tenantID, productID, loanRequestID, qty, price)
	f.store.batchLogs[l.ID] = l
	return l
}
