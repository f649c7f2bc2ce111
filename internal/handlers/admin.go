package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pouch/internal/services/admin"
	"pouch/internal/utils"
)

type AdminHandler struct {
	adminService admin.Service
}

func NewAdminHandler(adminService admin.Service) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) GetFlaggedTransactions(c *fiber.Ctx) error {
	flagged, err := h.adminService.ListFlagged(c.Context())
	if err != nil {
		return utils.InternalError(c, "failed to fetch flagged transactions")
	}
	return utils.Success(c, fiber.Map{
		"count":        len(flagged),
		"transactions": flagged,
	})
}

func (h *AdminHandler) GetTotalBalances(c *fiber.Ctx) error {
	summary, err := h.adminService.TotalBalances(c.Context())
	if err != nil {
		return utils.InternalError(c, "failed to aggregate balances")
	}
	return utils.Success(c, summary)
}

func (h *AdminHandler) GetTopUsers(c *fiber.Ctx) error {
	criteria := c.Params("criteria")
	ranked, err := h.adminService.TopUsers(c.Context(), criteria)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidCriteria) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalError(c, "failed to rank users")
	}
	return utils.Success(c, fiber.Map{
		"criteria": criteria,
		"users":    ranked,
	})
}
