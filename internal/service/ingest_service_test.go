package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	devnetUSDC  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	mainnetUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testPayer   = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

type ingestTestDeps struct {
	svc         *ingestService
	paymentRepo *mocks.MockPaymentRepository
	eventRepo   *mocks.MockEventRepository
	transactor  *mocks.MockDBTransactor
	deliverer   *mocks.MockWebhookDeliverer
	guard       *mocks.MockSignatureGuard
	payment     *domain.Payment
	event       *domain.Event
}

func setupIngest(t *testing.T) *ingestTestDeps {
	ctrl := gomock.NewController(t)
	d := &ingestTestDeps{
		paymentRepo: mocks.NewMockPaymentRepository(ctrl),
		eventRepo:   mocks.NewMockEventRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		deliverer:   mocks.NewMockWebhookDeliverer(ctrl),
		guard:       mocks.NewMockSignatureGuard(ctrl),
	}
	d.payment = &domain.Payment{
		ID:               uuid.New(),
		ProjectID:        uuid.New(),
		Amount:           19_990_000,
		RecipientAddress: testRecipient,
		Status:           domain.PaymentStatusPending,
	}
	d.event = &domain.Event{
		ID:        uuid.New(),
		PaymentID: d.payment.ID,
		ProjectID: d.payment.ProjectID,
		SessionID: "sess-ingest",
		Type:      domain.EventTypePayment,
		Metadata: map[string]any{
			domain.MetaMerchant: map[string]any{"orderId": "A-1"},
			domain.MetaNetwork:  string(domain.NetworkDevnet),
		},
	}
	d.svc = NewIngestService(
		d.paymentRepo, d.eventRepo, d.transactor, d.deliverer, d.guard,
		domain.DefaultMintRegistry(), time.Hour, zerolog.Nop(),
	).(*ingestService)
	return d
}

func memoData(t *testing.T, sessionID, amount string) string {
	t.Helper()
	b, err := json.Marshal(domain.Memo{SessionID: sessionID, Amount: amount, Token: "USDC", Timestamp: 1700000000000})
	require.NoError(t, err)
	return base58.Encode(b)
}

func (d *ingestTestDeps) chainTx(t *testing.T, amount float64, memoAmount string) ports.ChainTransaction {
	return ports.ChainTransaction{
		Signature: "5sig" + uuid.NewString(),
		Slot:      250_000_000,
		Timestamp: 1_700_000_100,
		TokenTransfers: []ports.TokenTransfer{{
			FromUserAccount: testPayer,
			ToUserAccount:   testRecipient,
			Mint:            devnetUSDC,
			TokenAmount:     amount,
		}},
		Instructions: []ports.ChainInstruction{
			{ProgramID: "ComputeBudget111111111111111111111111111111", Data: "3DTZbgwsozUF"},
			{ProgramID: MemoProgramID, Data: memoData(t, d.event.SessionID, memoAmount)},
		},
	}
}

func (d *ingestTestDeps) expectLookup(sig string) {
	d.guard.EXPECT().Seen(gomock.Any(), sig).Return(false, nil)
	d.eventRepo.EXPECT().GetBySessionID(gomock.Any(), d.event.SessionID).Return(d.event, nil)
	d.paymentRepo.EXPECT().GetByID(gomock.Any(), d.payment.ID).Return(d.payment, nil)
}

func TestIngestService_ConfirmsMatchingTransaction(t *testing.T) {
	d := setupIngest(t)
	tx := &mockTx{}
	item := d.chainTx(t, 19.99, "19.99")

	var (
		confirmation domain.ChainConfirmation
		patch        map[string]any
		delivered    ports.DeliveryRequest
	)
	d.expectLookup(item.Signature)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.paymentRepo.EXPECT().MarkConfirmed(gomock.Any(), tx, d.payment.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, c domain.ChainConfirmation) (bool, error) {
			confirmation = c
			return true, nil
		})
	d.eventRepo.EXPECT().Transition(gomock.Any(), tx, d.event.ID, domain.EventTypePaymentCompleted, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, _ domain.EventType, p map[string]any) error {
			patch = p
			return nil
		})
	d.guard.EXPECT().Remember(gomock.Any(), item.Signature, time.Hour).Return(nil)
	d.paymentRepo.EXPECT().ListProducts(gomock.Any(), d.payment.ID).
		Return([]domain.Product{{Name: "Pro", Price: 19_990_000}}, nil)
	d.deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, req ports.DeliveryRequest) { delivered = req })

	summary := d.svc.Ingest(context.Background(), []ports.ChainTransaction{item})

	assert.Equal(t, ports.IngestSummary{Received: 1, Confirmed: 1}, summary)
	assert.True(t, tx.committed)
	assert.Equal(t, item.Signature, confirmation.Signature)
	assert.Equal(t, int64(250_000_000), confirmation.Slot)
	assert.Equal(t, time.Unix(1_700_000_100, 0).UTC(), confirmation.ConfirmedAt)

	assert.Equal(t, item.Signature, patch[domain.MetaTransactionSignature])
	assert.Equal(t, devnetUSDC, patch[domain.MetaTokenMint])
	assert.Equal(t, string(domain.NetworkDevnet), patch[domain.MetaNetwork])
	assert.Equal(t, testPayer, patch[domain.MetaWalletAddress])

	assert.Equal(t, d.event.ID, delivered.EventID)
	assert.Equal(t, d.payment.ProjectID, delivered.ProjectID)
	assert.Equal(t, domain.EventTypePaymentCompleted, delivered.EventType)
	payload, ok := delivered.Payload.(WebhookPayload)
	require.True(t, ok)
	assert.Equal(t, domain.WebhookEventPaymentCompleted, payload.Type)
	assert.Equal(t, "CONFIRMED", payload.Data.Status)
	assert.Equal(t, item.Signature, payload.Data.TransactionSignature)
	assert.Equal(t, map[string]any{"orderId": "A-1"}, payload.Data.Metadata)
	require.Len(t, payload.Data.Products, 1)
}

func TestIngestService_AcceptsBase64Memo(t *testing.T) {
	d := setupIngest(t)
	tx := &mockTx{}
	item := d.chainTx(t, 19.99, "19.99")
	raw, _ := base58.Decode(item.Instructions[1].Data)
	item.Instructions[1].Data = base64.StdEncoding.EncodeToString(raw)

	d.expectLookup(item.Signature)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.paymentRepo.EXPECT().MarkConfirmed(gomock.Any(), tx, d.payment.ID, gomock.Any()).Return(true, nil)
	d.eventRepo.EXPECT().Transition(gomock.Any(), tx, d.event.ID, domain.EventTypePaymentCompleted, gomock.Any()).Return(nil)
	d.guard.EXPECT().Remember(gomock.Any(), item.Signature, time.Hour).Return(nil)
	d.paymentRepo.EXPECT().ListProducts(gomock.Any(), d.payment.ID).Return(nil, nil)
	d.deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any())

	summary := d.svc.Ingest(context.Background(), []ports.ChainTransaction{item})
	assert.Equal(t, 1, summary.Confirmed)
}

func TestIngestService_AmountWithinTolerance(t *testing.T) {
	d := setupIngest(t)
	tx := &mockTx{}
	item := d.chainTx(t, 19.9900004, "19.99")

	d.expectLookup(item.Signature)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.paymentRepo.EXPECT().MarkConfirmed(gomock.Any(), tx, d.payment.ID, gomock.Any()).Return(true, nil)
	d.eventRepo.EXPECT().Transition(gomock.Any(), tx, d.event.ID, domain.EventTypePaymentCompleted, gomock.Any()).Return(nil)
	d.guard.EXPECT().Remember(gomock.Any(), item.Signature, time.Hour).Return(nil)
	d.paymentRepo.EXPECT().ListProducts(gomock.Any(), d.payment.ID).Return(nil, nil)
	d.deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any())

	summary := d.svc.Ingest(context.Background(), []ports.ChainTransaction{item})
	assert.Equal(t, 1, summary.Confirmed)
}

func TestIngestService_SkipsFilteredTransactions(t *testing.T) {
	d := setupIngest(t)

	failed := d.chainTx(t, 19.99, "19.99")
	failed.Failed = true

	noTransfers := d.chainTx(t, 19.99, "19.99")
	noTransfers.TokenTransfers = nil

	noMemo := d.chainTx(t, 19.99, "19.99")
	noMemo.Instructions = noMemo.Instructions[:1]

	garbage := d.chainTx(t, 19.99, "19.99")
	garbage.Instructions[1].Data = "!!not-encoded!!"

	unsigned := d.chainTx(t, 19.99, "19.99")
	unsigned.Signature = ""

	summary := d.svc.Ingest(context.Background(), []ports.ChainTransaction{failed, noTransfers, noMemo, garbage, unsigned})
	assert.Equal(t, ports.IngestSummary{Received: 5, Skipped: 5}, summary)
}

func TestIngestService_AmountMismatchLeavesPending(t *testing.T) {
	tests := []struct {
		name       string
		actual     float64
		memoAmount string
	}{
		{"transfer differs from memo", 19.98, "19.99"},
		{"memo differs from payment", 0.01, "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupIngest(t)
			item := d.chainTx(t, tt.actual, tt.memoAmount)
			d.expectLookup(item.Signature)

			err := d.svc.process(context.Background(), &item)
			assert.ErrorIs(t, err, ErrAmountMismatch)
			assert.Equal(t, domain.PaymentStatusPending, d.payment.Status)
		})
	}
}

func TestIngestService_SkipsNonPendingPayment(t *testing.T) {
	d := setupIngest(t)
	d.payment.Status = domain.PaymentStatusConfirmed
	item := d.chainTx(t, 19.99, "19.99")
	d.expectLookup(item.Signature)

	err := d.svc.process(context.Background(), &item)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestIngestService_ConcurrentConfirmationDoesNotDispatch(t *testing.T) {
	d := setupIngest(t)
	tx := &mockTx{}
	item := d.chainTx(t, 19.99, "19.99")

	d.expectLookup(item.Signature)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.paymentRepo.EXPECT().MarkConfirmed(gomock.Any(), tx, d.payment.ID, gomock.Any()).Return(false, nil)

	summary := d.svc.Ingest(context.Background(), []ports.ChainTransaction{item})
	assert.Equal(t, 1, summary.Skipped)
	assert.False(t, tx.committed)
}

func TestIngestService_SkipsRememberedSignature(t *testing.T) {
	d := setupIngest(t)
	item := d.chainTx(t, 19.99, "19.99")
	d.guard.EXPECT().Seen(gomock.Any(), item.Signature).Return(true, nil)

	err := d.svc.process(context.Background(), &item)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestIngestService_GuardOutageFallsThrough(t *testing.T) {
	d := setupIngest(t)
	item := d.chainTx(t, 19.99, "19.99")
	d.guard.EXPECT().Seen(gomock.Any(), item.Signature).Return(false, errors.New("redis down"))
	d.eventRepo.EXPECT().GetBySessionID(gomock.Any(), d.event.SessionID).Return(nil, nil)

	err := d.svc.process(context.Background(), &item)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestIngestService_SkipsTransferToOtherWallet(t *testing.T) {
	d := setupIngest(t)
	item := d.chainTx(t, 19.99, "19.99")
	item.TokenTransfers[0].ToUserAccount = testPayer
	d.expectLookup(item.Signature)

	err := d.svc.process(context.Background(), &item)
	assert.ErrorIs(t, err, ErrRecipientMismatch)
}

func TestIngestService_SkipsWrongNetworkMint(t *testing.T) {
	d := setupIngest(t)
	item := d.chainTx(t, 19.99, "19.99")
	item.TokenTransfers[0].Mint = mainnetUSDC
	d.expectLookup(item.Signature)

	err := d.svc.process(context.Background(), &item)
	assert.ErrorIs(t, err, ErrUnsupportedMint)
}

func TestIngestService_FailureDoesNotAbortBatch(t *testing.T) {
	d := setupIngest(t)
	tx := &mockTx{}
	broken := d.chainTx(t, 19.99, "19.99")
	good := d.chainTx(t, 19.99, "19.99")

	gomock.InOrder(
		d.guard.EXPECT().Seen(gomock.Any(), broken.Signature).Return(false, nil),
		d.eventRepo.EXPECT().GetBySessionID(gomock.Any(), d.event.SessionID).
			DoAndReturn(func(context.Context, string) (*domain.Event, error) {
				panic("driver exploded")
			}),
		d.guard.EXPECT().Seen(gomock.Any(), good.Signature).Return(false, nil),
		d.eventRepo.EXPECT().GetBySessionID(gomock.Any(), d.event.SessionID).Return(d.event, nil),
	)
	d.paymentRepo.EXPECT().GetByID(gomock.Any(), d.payment.ID).Return(d.payment, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.paymentRepo.EXPECT().MarkConfirmed(gomock.Any(), tx, d.payment.ID, gomock.Any()).Return(true, nil)
	d.eventRepo.EXPECT().Transition(gomock.Any(), tx, d.event.ID, domain.EventTypePaymentCompleted, gomock.Any()).Return(nil)
	d.guard.EXPECT().Remember(gomock.Any(), good.Signature, time.Hour).Return(nil)
	d.paymentRepo.EXPECT().ListProducts(gomock.Any(), d.payment.ID).Return(nil, nil)
	d.deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any())

	summary := d.svc.Ingest(context.Background(), []ports.ChainTransaction{broken, good})
	assert.Equal(t, ports.IngestSummary{Received: 2, Confirmed: 1, Failed: 1}, summary)
}

func TestIngestService_DeliveryPanicKeepsConfirmation(t *testing.T) {
	d := setupIngest(t)
	tx := &mockTx{}
	item := d.chainTx(t, 19.99, "19.99")

	d.expectLookup(item.Signature)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.paymentRepo.EXPECT().MarkConfirmed(gomock.Any(), tx, d.payment.ID, gomock.Any()).Return(true, nil)
	d.eventRepo.EXPECT().Transition(gomock.Any(), tx, d.event.ID, domain.EventTypePaymentCompleted, gomock.Any()).Return(nil)
	d.guard.EXPECT().Remember(gomock.Any(), item.Signature, time.Hour).Return(nil)
	d.paymentRepo.EXPECT().ListProducts(gomock.Any(), d.payment.ID).Return(nil, errors.New("timeout"))
	d.deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any()).Do(func(context.Context, ports.DeliveryRequest) {
		panic("endpoint table gone")
	})

	summary := d.svc.Ingest(context.Background(), []ports.ChainTransaction{item})
	assert.Equal(t, 1, summary.Confirmed)
	assert.True(t, tx.committed)
}

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip(ErrAmountMismatch))
	assert.True(t, IsSkip(errors.Join(errors.New("ctx"), ErrMemoDecode)))
	assert.False(t, IsSkip(errors.New("connection reset")))
}
