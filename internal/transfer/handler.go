package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jetonpay/jeton/internal/token"
)

// Handler exposes token ledger endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Supply reports the fixed total supply.
func (h *Handler) Supply(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"total_supply": h.service.Supply()})
}

// Balance returns the balance of the account in the path, or of the caller
// when the path says "me".
func (h *Handler) Balance(c *fiber.Ctx) error {
	account, err := pathAccount(c, "accountId")
	if err != nil {
		return err
	}
	balance, err := h.service.Balance(c.UserContext(), account)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.JSON(fiber.Map{"account_id": account.String(), "balance": balance})
}

// Allowance returns the remaining allowance for the (owner, spender) pair in
// the path.
func (h *Handler) Allowance(c *fiber.Ctx) error {
	owner, err := pathAccount(c, "ownerId")
	if err != nil {
		return err
	}
	spender, err := pathAccount(c, "spenderId")
	if err != nil {
		return err
	}
	allowance, err := h.service.Allowance(c.UserContext(), owner, spender)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.JSON(fiber.Map{
		"owner_id":   owner.String(),
		"spender_id": spender.String(),
		"allowance":  allowance,
	})
}

type transferRequest struct {
	ToAccountID string       `json:"to_account_id"`
	Amount      token.Amount `json:"amount"`
}

// Transfer moves tokens from the caller's account.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	to, err := token.ParseAccountID(req.ToAccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid to_account_id")
	}

	res, err := h.service.Transfer(c.UserContext(), caller, TransferInput{To: to, Value: req.Amount})
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"from_account_id": res.From.String(),
		"to_account_id":   res.To.String(),
		"amount":          res.Value,
		"from_balance":    res.FromBalance,
		"to_balance":      res.ToBalance,
		"completed_at":    res.CompletedAt,
	})
}

type approveRequest struct {
	SpenderAccountID string       `json:"spender_account_id"`
	Amount           token.Amount `json:"amount"`
}

// Approve sets the caller's allowance for a spender.
func (h *Handler) Approve(c *fiber.Ctx) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	spender, err := token.ParseAccountID(req.SpenderAccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid spender_account_id")
	}

	res, err := h.service.Approve(c.UserContext(), caller, ApproveInput{Spender: spender, Value: req.Amount})
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"owner_id":   res.Owner.String(),
		"spender_id": res.Spender.String(),
		"allowance":  res.Allowance,
	})
}

type delegatedRequest struct {
	FromAccountID string       `json:"from_account_id"`
	ToAccountID   string       `json:"to_account_id"`
	Amount        token.Amount `json:"amount"`
}

// TransferFrom spends the caller's allowance to move tokens out of another
// account.
func (h *Handler) TransferFrom(c *fiber.Ctx) error {
	caller, err := callerAccount(c)
	if err != nil {
		return err
	}
	var req delegatedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	from, err := token.ParseAccountID(req.FromAccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid from_account_id")
	}
	to, err := token.ParseAccountID(req.ToAccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid to_account_id")
	}

	res, err := h.service.TransferFrom(c.UserContext(), caller, DelegatedInput{From: from, To: to, Value: req.Amount})
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"from_account_id":     res.From.String(),
		"to_account_id":       res.To.String(),
		"spender_id":          caller.String(),
		"amount":              res.Value,
		"from_balance":        res.FromBalance,
		"to_balance":          res.ToBalance,
		"remaining_allowance": res.RemainingAllowance,
		"completed_at":        res.CompletedAt,
	})
}

func callerAccount(c *fiber.Ctx) (token.AccountID, error) {
	acc, _ := c.Locals("account_id").(string)
	if acc == "" {
		return token.AccountID{}, fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	account, err := token.ParseAccountID(acc)
	if err != nil {
		return token.AccountID{}, fiber.NewError(http.StatusUnauthorized, "invalid session account")
	}
	return account, nil
}

func pathAccount(c *fiber.Ctx, param string) (token.AccountID, error) {
	raw := c.Params(param)
	if raw == "me" {
		return callerAccount(c)
	}
	account, err := token.ParseAccountID(raw)
	if err != nil {
		return token.AccountID{}, fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	return account, nil
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		return fiber.NewError(http.StatusUnprocessableEntity, "insufficient balance")
	case errors.Is(err, token.ErrInsufficientAllowance):
		return fiber.NewError(http.StatusForbidden, "insufficient allowance")
	case errors.Is(err, token.ErrAmountOverflow):
		return fiber.NewError(http.StatusUnprocessableEntity, "amount out of range")
	case errors.Is(err, ErrZeroDestination):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
