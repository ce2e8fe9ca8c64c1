package controller

import (
	"hackportal/middleware"
	"hackportal/models"
	"hackportal/services"
	"hackportal/utils"

	"github.com/gofiber/fiber/v2"
)

// PurchaseRequest is either a single item ({itemId, quantity}) or a
// batch ({purchases: [...]}).
type PurchaseRequest struct {
	ItemID    uint                `json:"itemId"`
	Quantity  int64               `json:"quantity" validate:"omitempty,min=1,max=1000"`
	Purchases []services.LineItem `json:"purchases" validate:"omitempty,dive"`
}

type ShopController struct {
	Teams   *services.TeamDirectory
	Catalog *services.Catalog
	Ledger  *services.Ledger
}

func NewShopController(teams *services.TeamDirectory, catalog *services.Catalog, ledger *services.Ledger) *ShopController {
	return &ShopController{Teams: teams, Catalog: catalog, Ledger: ledger}
}

// Shop returns the catalog together with the caller's team budget.
func (sc *ShopController) Shop(c *fiber.Ctx) error {
	ctx := c.UserContext()
	team, err := sc.shoppingTeam(c)
	if err != nil {
		return respondError(c, err)
	}

	items, err := sc.Catalog.ListItems(ctx)
	if err != nil {
		return respondError(c, err)
	}
	budget, err := sc.Ledger.TeamBudget(ctx, team.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"budget": budget,
		"team":   team,
	})
}

// Item returns one catalog entry with its current stock.
func (sc *ShopController) Item(c *fiber.Ctx) error {
	if _, err := sc.shoppingTeam(c); err != nil {
		return respondError(c, err)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "Invalid item id")
	}

	item, err := sc.Catalog.Item(c.UserContext(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"item": item,
	})
}

func (sc *ShopController) Purchase(c *fiber.Ctx) error {
	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, err.Error())
	}
	if len(req.Purchases) == 0 && req.ItemID == 0 {
		return badRequest(c, "itemId or purchases is required")
	}

	team, err := sc.shoppingTeam(c)
	if err != nil {
		return respondError(c, err)
	}

	var purchases []models.Purchase
	if len(req.Purchases) > 0 {
		purchases, err = sc.Ledger.PurchaseBatch(c.UserContext(), team.ID, req.Purchases)
	} else {
		var purchase *models.Purchase
		purchase, err = sc.Ledger.Purchase(c.UserContext(), team.ID, req.ItemID, req.Quantity)
		if err == nil {
			purchases = []models.Purchase{*purchase}
		}
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"purchases": purchases,
	})
}

func (sc *ShopController) shoppingTeam(c *fiber.Ctx) (*models.Team, error) {
	team, err := sc.Teams.TeamForUser(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, services.BadRequest("You must be in a team to access the shop")
	}
	if !team.Approved {
		return nil, services.Forbidden(services.MsgTeamNotApproved)
	}
	return team, nil
}
