package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	tokenprog "github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var memoProgram = solana.MustPublicKeyFromBase58(MemoProgramID)

// transactionBuilder implements ports.TransactionBuilder.
type transactionBuilder struct {
	tokenRepo   ports.APITokenRepository
	paymentRepo ports.PaymentRepository
	eventRepo   ports.EventRepository
	chains      ports.ChainConnectionPool
	mints       *domain.MintRegistry
	sessionTTL  time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewTransactionBuilder creates the checkout transaction builder.
func NewTransactionBuilder(
	tokenRepo ports.APITokenRepository,
	paymentRepo ports.PaymentRepository,
	eventRepo ports.EventRepository,
	chains ports.ChainConnectionPool,
	mints *domain.MintRegistry,
	sessionTTL time.Duration,
	log zerolog.Logger,
) ports.TransactionBuilder {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &transactionBuilder{
		tokenRepo:   tokenRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		chains:      chains,
		mints:       mints,
		sessionTTL:  sessionTTL,
		now:         time.Now,
		log:         log,
	}
}

// Build assembles an unsigned transaction paying the session amount from the
// payer's token account to the recipient's, with the session memo first.
func (b *transactionBuilder) Build(ctx context.Context, req ports.BuildTransactionRequest) (*ports.BuiltTransaction, error) {
	payer, err := solana.PublicKeyFromBase58(req.PayerAddress)
	if err != nil {
		return nil, apperror.ErrInvalidAddress("account")
	}

	event, payment, err := loadSession(ctx, b.eventRepo, b.paymentRepo, req.SessionID)
	if err != nil {
		return nil, err
	}
	now := b.now()
	if !payment.IsPending() {
		return nil, apperror.ErrSessionClosed(string(payment.Status))
	}
	if payment.CheckoutExpired(now, b.sessionTTL) {
		return nil, apperror.ErrSessionExpired()
	}

	recipient, err := solana.PublicKeyFromBase58(payment.RecipientAddress)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("payment %s has invalid recipient: %w", payment.ID, err))
	}

	network, err := sessionNetwork(ctx, b.tokenRepo, event, payment)
	if err != nil {
		return nil, err
	}

	symbol := req.Token
	if symbol == "" {
		symbol = domain.TokenUSDC
	}
	mintAddr, ok := b.mints.Resolve(symbol, network)
	if !ok {
		return nil, apperror.ErrMintResolution(string(symbol), string(network))
	}
	mint, err := solana.PublicKeyFromBase58(mintAddr)
	if err != nil {
		return nil, apperror.ErrMintResolution(string(symbol), string(network))
	}

	reader, err := b.chains.Reader(network)
	if err != nil {
		return nil, apperror.ErrChainUnavailable(err)
	}

	var (
		decimals uint8
		ref      *ports.BlockReference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := reader.GetMintDecimals(gctx, mint)
		if err != nil {
			return fmt.Errorf("mint decimals: %w", err)
		}
		decimals = d
		return nil
	})
	g.Go(func() error {
		r, err := reader.LatestBlockReference(gctx)
		if err != nil {
			return fmt.Errorf("latest blockhash: %w", err)
		}
		ref = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.ErrChainUnavailable(err)
	}

	raw, err := domain.MicroToRaw(payment.Amount, decimals)
	if err != nil || raw == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	payerATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive payer token account: %w", err))
	}
	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive recipient token account: %w", err))
	}

	balance, err := reader.GetTokenBalance(ctx, payerATA)
	if err != nil {
		return nil, apperror.ErrChainUnavailable(fmt.Errorf("payer balance: %w", err))
	}
	if balance == nil {
		return nil, apperror.ErrNoSourceAccount(string(symbol))
	}
	if balance.Amount < raw {
		return nil, apperror.ErrInsufficientBalance(
			string(symbol),
			domain.FormatRawAmount(raw, decimals),
			domain.FormatRawAmount(balance.Amount, decimals),
		)
	}

	recipientReady, err := reader.AccountExists(ctx, recipientATA)
	if err != nil {
		return nil, apperror.ErrChainUnavailable(fmt.Errorf("recipient token account: %w", err))
	}

	memo := domain.Memo{
		SessionID: event.SessionID,
		Amount:    domain.FormatMicroUnits(payment.Amount),
		Token:     string(symbol),
		Timestamp: now.UnixMilli(),
		ProjectID: payment.ProjectID.String(),
	}
	memoData, err := json.Marshal(memo)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encode memo: %w", err))
	}

	instructions := []solana.Instruction{
		solana.NewInstruction(memoProgram, solana.AccountMetaSlice{}, memoData),
	}
	if !recipientReady {
		create, err := ata.NewCreateInstruction(payer, recipient, mint).ValidateAndBuild()
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("build create account instruction: %w", err))
		}
		instructions = append(instructions, create)
	}
	transfer, err := tokenprog.NewTransferCheckedInstruction(
		raw, decimals, payerATA, mint, recipientATA, payer, []solana.PublicKey{},
	).ValidateAndBuild()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build transfer instruction: %w", err))
	}
	instructions = append(instructions, transfer)

	tx, err := solana.NewTransaction(instructions, ref.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("assemble transaction: %w", err))
	}
	// Unsigned: the wallet fills the signature slots.
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("serialize transaction: %w", err))
	}

	b.log.Info().
		Str("session_id", event.SessionID).
		Str("payer", payer.String()).
		Str("network", string(network)).
		Str("token", string(symbol)).
		Uint64("raw_amount", raw).
		Bool("creates_recipient_account", !recipientReady).
		Msg("checkout transaction built")

	return &ports.BuiltTransaction{
		Transaction:          base64.StdEncoding.EncodeToString(wire),
		Blockhash:            ref.Blockhash.String(),
		LastValidBlockHeight: ref.LastValidBlockHeight,
		Network:              network,
		Mint:                 mintAddr,
		RawAmount:            raw,
		Decimals:             decimals,
		Memo:                 memo,
	}, nil
}
