package controller

import (
	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/pkg/serverutils"
	"design-sandbox-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEnrichmentController interface {
	RegisterRoutes(r fiber.Router)
	Analyze(ctx *fiber.Ctx) error
	Embed(ctx *fiber.Ctx) error
	GenerateBriefing(ctx *fiber.Ctx) error
}

type enrichmentController struct {
	enrichmentService service.IEnrichmentService
}

func NewEnrichmentController(enrichmentService service.IEnrichmentService) IEnrichmentController {
	return &enrichmentController{
		enrichmentService: enrichmentService,
	}
}

func (c *enrichmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/enrich/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("analyze", c.Analyze)
	h.Post("embed", c.Embed)
	h.Post("briefing", c.GenerateBriefing)
}

func (c *enrichmentController) Analyze(ctx *fiber.Ctx) error {
	var req dto.StageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.enrichmentService.Analyze(ctx.Context(), req.ItemId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success analyze item", res))
}

func (c *enrichmentController) Embed(ctx *fiber.Ctx) error {
	var req dto.StageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.enrichmentService.Embed(ctx.Context(), req.ItemId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success embed item", res))
}

func (c *enrichmentController) GenerateBriefing(ctx *fiber.Ctx) error {
	var req dto.BriefingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.enrichmentService.GenerateBriefing(ctx.Context(), req.ItemId, req.Force)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate briefing", res))
}
