package controller

import (
	"hackportal/middleware"
	"hackportal/services"
	"hackportal/utils"

	"github.com/gofiber/fiber/v2"
)

type TeamRequest struct {
	TeamName string `json:"teamName" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

type TeamController struct {
	Teams  *services.TeamDirectory
	Ledger *services.Ledger
}

func NewTeamController(teams *services.TeamDirectory, ledger *services.Ledger) *TeamController {
	return &TeamController{Teams: teams, Ledger: ledger}
}

func (tc *TeamController) Create(c *fiber.Ctx) error {
	req, err := parseTeamRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	team, err := tc.Teams.CreateTeam(c.UserContext(), middleware.CurrentUser(c), req.TeamName, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"team":    team,
	})
}

func (tc *TeamController) Join(c *fiber.Ctx) error {
	req, err := parseTeamRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	team, err := tc.Teams.JoinTeam(c.UserContext(), middleware.CurrentUser(c), req.TeamName, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"team":    team,
	})
}

func (tc *TeamController) Leave(c *fiber.Ctx) error {
	if err := tc.Teams.LeaveTeam(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// Current returns the caller's team with members, budget and purchases.
// A caller without a team gets {"team": null}.
func (tc *TeamController) Current(c *fiber.Ctx) error {
	ctx := c.UserContext()
	team, err := tc.Teams.TeamForUser(ctx, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	if team == nil {
		return c.JSON(fiber.Map{
			"team": nil,
		})
	}

	members, err := tc.Teams.Members(ctx, team.ID)
	if err != nil {
		return respondError(c, err)
	}
	budget, err := tc.Ledger.TeamBudget(ctx, team.ID)
	if err != nil {
		return respondError(c, err)
	}
	purchases, err := tc.Ledger.TeamPurchases(ctx, team.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"team":      team,
		"members":   members,
		"budget":    budget,
		"purchases": purchases,
	})
}

func parseTeamRequest(c *fiber.Ctx) (TeamRequest, error) {
	var req TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return req, err
	}
	return req, nil
}
