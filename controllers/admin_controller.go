package controller

import (
	"hackportal/services"
	"hackportal/utils"

	"github.com/gofiber/fiber/v2"
)

const recentListSize = 10

type FulfillRequest struct {
	PurchaseID  uint   `json:"purchaseId"`
	PurchaseIDs []uint `json:"purchaseIds"`
	Fulfilled   *bool  `json:"fulfilled" validate:"required"`
}

type UndoRequest struct {
	PurchaseID uint `json:"purchaseId" validate:"required"`
}

type ApproveRequest struct {
	TeamID   uint  `json:"teamId" validate:"required"`
	Approved *bool `json:"approved" validate:"required"`
}

// AdminController serves the back office. Every route sits behind
// middleware.AdminOnly.
type AdminController struct {
	Oversight *services.AdminOversight
	Teams     *services.TeamDirectory
	Ledger    *services.Ledger
}

func NewAdminController(oversight *services.AdminOversight, teams *services.TeamDirectory, ledger *services.Ledger) *AdminController {
	return &AdminController{Oversight: oversight, Teams: teams, Ledger: ledger}
}

func (ac *AdminController) Stats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := ac.Oversight.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	users, err := ac.Oversight.RecentUsers(ctx, recentListSize)
	if err != nil {
		return respondError(c, err)
	}
	saves, err := ac.Oversight.RecentSaves(ctx, recentListSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"stats":       stats,
		"recentUsers": users,
		"recentSaves": saves,
	})
}

func (ac *AdminController) Orders(c *fiber.Ctx) error {
	orders, err := ac.Oversight.ListOrders(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
	})
}

// Fulfill accepts a single purchaseId, a purchaseIds list, or both.
func (ac *AdminController) Fulfill(c *fiber.Ctx) error {
	var req FulfillRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, err.Error())
	}

	ids := req.PurchaseIDs
	if req.PurchaseID != 0 {
		ids = append(ids, req.PurchaseID)
	}
	if len(ids) == 0 {
		return badRequest(c, "purchaseId or purchaseIds is required")
	}

	result, err := ac.Ledger.MarkFulfilled(c.UserContext(), ids, *req.Fulfilled)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"updated": result.Updated,
		"missing": result.Missing,
	})
}

func (ac *AdminController) Undo(c *fiber.Ctx) error {
	var req UndoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := ac.Ledger.UndoPurchase(c.UserContext(), req.PurchaseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":          true,
		"restoredQuantity": result.RestoredQuantity,
	})
}

func (ac *AdminController) ListTeams(c *fiber.Ctx) error {
	teams, err := ac.Oversight.ListTeams(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"teams": teams,
	})
}

func (ac *AdminController) ApproveTeam(c *fiber.Ctx) error {
	var req ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := ac.Teams.ApproveTeam(c.UserContext(), req.TeamID, *req.Approved); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"approved": *req.Approved,
	})
}
