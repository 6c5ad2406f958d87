// services/arena_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"arena-pot-ledger/ledger"
	"arena-pot-ledger/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OperatorLowBalance is the operator wallet level (0.01 SOL) below which status reports low_balance.
const OperatorLowBalance int64 = 10_000_000

// Ledger is what the HTTP layer needs from *ledger.Ledger.
type Ledger interface {
	EnterCombat(ctx context.Context, caller string) (*ledger.EntryReceipt, error)
	EnterCombatPrefunded(ctx context.Context, caller string) (*ledger.EntryReceipt, error)
	EnterCombatForPlayer(ctx context.Context, caller, player string) (*ledger.EntryReceipt, error)
	DepositToStake(ctx context.Context, caller string, amount int64) (*ledger.StakeReceipt, error)
	WithdrawFromStake(ctx context.Context, caller string, amount int64) (*ledger.StakeReceipt, error)
	ClaimPrize(ctx context.Context, caller, winner, proof string) (*ledger.SettlementReceipt, error)
	PoolState(ctx context.Context) (*ledger.PoolState, error)
	StakeAccount(ctx context.Context, owner string) (*models.StakeAccount, error)
	PaymentOptions(ctx context.Context, owner string) (*ledger.PaymentOptions, error)
	Balance(ctx context.Context, address string) (int64, error)
	Settlements(ctx context.Context, limit int) ([]models.Settlement, error)
}

type ArenaService struct {
	Ledger Ledger
	Logger *zap.Logger

	// how often the pot stream checks for changes
	StreamInterval time.Duration
}

func NewArenaService(l Ledger, logger *zap.Logger) *ArenaService {
	return &ArenaService{Ledger: l, Logger: logger, StreamInterval: 2 * time.Second}
}

// --- request types ---

type EnterForPlayerRequest struct {
	Player string `json:"player"`
}

type StakeAmountRequest struct {
	Amount int64 `json:"amount"`
}

type ClaimPrizeRequest struct {
	Winner string          `json:"winner"`
	Proof  json.RawMessage `json:"proof"`
}

// proofText keeps a JSON string proof as its contents and any other JSON value verbatim.
func (r ClaimPrizeRequest) proofText() string {
	var s string
	if err := json.Unmarshal(r.Proof, &s); err == nil {
		return s
	}
	return string(r.Proof)
}

// StatusFor maps ledger errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnauthorizedOperator):
		return fiber.StatusForbidden
	case errors.Is(err, ledger.ErrEmptyPot):
		return fiber.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientPrefundedBalance):
		return fiber.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidIdentity):
		return fiber.StatusBadRequest
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func errorCode(err error) string {
	for _, known := range []error{
		ledger.ErrUnauthorizedOperator,
		ledger.ErrEmptyPot,
		ledger.ErrInsufficientFunds,
		ledger.ErrInsufficientPrefundedBalance,
		ledger.ErrInvalidAmount,
		ledger.ErrInvalidIdentity,
		ledger.ErrAccountNotFound,
	} {
		if errors.Is(err, known) {
			return strings.ReplaceAll(known.Error(), " ", "_")
		}
	}
	return "internal_error"
}

func (s *ArenaService) fail(c *fiber.Ctx, op string, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		s.Logger.Error(op+" failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": errorCode(err)})
	}
	s.Logger.Debug(op+" rejected", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(status).JSON(fiber.Map{
		"error":   errorCode(err),
		"details": err.Error(),
	})
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("caller_id").(string)
	return id
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "invalid JSON",
		"details": err.Error(),
	})
}

// --- participant operations ---

// EnterCombat pays the entry fee from the caller's wallet.
func (s *ArenaService) EnterCombat(c *fiber.Ctx) error {
	receipt, err := s.Ledger.EnterCombat(c.UserContext(), callerID(c))
	if err != nil {
		return s.fail(c, "enter combat", err)
	}
	return c.JSON(receipt)
}

// EnterCombatPrefunded pays the entry fee from the caller's stake account.
func (s *ArenaService) EnterCombatPrefunded(c *fiber.Ctx) error {
	receipt, err := s.Ledger.EnterCombatPrefunded(c.UserContext(), callerID(c))
	if err != nil {
		return s.fail(c, "enter combat prefunded", err)
	}
	return c.JSON(receipt)
}

func (s *ArenaService) DepositToStake(c *fiber.Ctx) error {
	var req StakeAmountRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	receipt, err := s.Ledger.DepositToStake(c.UserContext(), callerID(c), req.Amount)
	if err != nil {
		return s.fail(c, "stake deposit", err)
	}
	return c.JSON(receipt)
}

func (s *ArenaService) WithdrawFromStake(c *fiber.Ctx) error {
	var req StakeAmountRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	receipt, err := s.Ledger.WithdrawFromStake(c.UserContext(), callerID(c), req.Amount)
	if err != nil {
		return s.fail(c, "stake withdrawal", err)
	}
	return c.JSON(receipt)
}

// --- operator operations ---

// EnterCombatForPlayer spends a player's stake balance on their behalf.
func (s *ArenaService) EnterCombatForPlayer(c *fiber.Ctx) error {
	var req EnterForPlayerRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	receipt, err := s.Ledger.EnterCombatForPlayer(c.UserContext(), callerID(c), req.Player)
	if err != nil {
		return s.fail(c, "enter combat for player", err)
	}
	return c.JSON(receipt)
}

// ClaimPrize pays the pot to the certified winner.
func (s *ArenaService) ClaimPrize(c *fiber.Ctx) error {
	var req ClaimPrizeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	receipt, err := s.Ledger.ClaimPrize(c.UserContext(), callerID(c), req.Winner, req.proofText())
	if err != nil {
		return s.fail(c, "claim prize", err)
	}
	return c.JSON(receipt)
}

// --- reads ---

func (s *ArenaService) GetState(c *fiber.Ctx) error {
	ctx := c.UserContext()
	state, err := s.Ledger.PoolState(ctx)
	if err != nil {
		return s.fail(c, "pool state", err)
	}
	recent, err := s.Ledger.Settlements(ctx, 5)
	if err != nil {
		return s.fail(c, "recent settlements", err)
	}
	return c.JSON(fiber.Map{
		"current_pot":        state.CurrentPot,
		"current_pot_sol":    LamportsToSOL(state.CurrentPot),
		"current_monster":    MonsterForPot(state.CurrentPot),
		"total_entries":      state.TotalEntries,
		"last_winner":        state.LastWinner,
		"vault_address":      state.VaultAddress,
		"vault_balance":      state.VaultBalance,
		"entry_fee":          state.EntryFee,
		"treasury_fee_bps":   state.TreasuryFeeBps,
		"recent_settlements": recent,
	})
}

func (s *ArenaService) GetPlayer(c *fiber.Ctx) error {
	acct, err := s.Ledger.StakeAccount(c.UserContext(), c.Params("wallet"))
	if err != nil {
		return s.fail(c, "get player", err)
	}
	return c.JSON(acct)
}

func (s *ArenaService) GetPaymentOptions(c *fiber.Ctx) error {
	opts, err := s.Ledger.PaymentOptions(c.UserContext(), c.Params("wallet"))
	if err != nil {
		return s.fail(c, "payment options", err)
	}
	return c.JSON(opts)
}

// OperatorStatus reports whether the operator wallet can keep paying for delegated entries.
func (s *ArenaService) OperatorStatus(c *fiber.Ctx) error {
	balance, err := s.Ledger.Balance(c.UserContext(), ledger.OperatorIdentity)
	if err != nil {
		return s.fail(c, "operator status", err)
	}
	status := "healthy"
	if balance <= OperatorLowBalance {
		status = "low_balance"
	}
	return c.JSON(fiber.Map{
		"address":     ledger.OperatorIdentity,
		"balance":     balance,
		"balance_sol": LamportsToSOL(balance),
		"status":      status,
		"program_id":  ledger.ProgramID,
		"treasury":    ledger.TreasuryIdentity,
		"features":    []string{"hybrid_payments", "stake_deposits", "delegated_entries", "prize_routing"},
	})
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().UTC()})
}
