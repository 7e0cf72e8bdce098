package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/ctdf"
	"github.com/travigo/journeymapper/pkg/identity"
)

type datedServiceJourneys struct {
	service *identity.Service
}

func DatedServiceJourneysRouter(router fiber.Router, service *identity.Service) {
	handler := &datedServiceJourneys{service: service}

	router.Post("/query", handler.query)
	router.Post("/reverse-query", handler.reverseQuery)

	router.Get("/dated/:datedServiceJourneyId", handler.getByDatedServiceJourneyID)
	router.Get("/original/:originalDatedServiceJourneyId", handler.getByOriginalDatedServiceJourneyID)
	router.Get("/privatecode/:privateCode/:version/:date", handler.getByPrivateCode)
	router.Get("/:serviceJourneyId/:version/:date", handler.getByServiceJourneyID)

	// Deprecated
	router.Get("/:datedServiceJourneyId", handler.getByDatedServiceJourneyID)
}

func (h *datedServiceJourneys) getByServiceJourneyID(c *fiber.Ctx) error {
	datedServiceJourney, err := h.service.FindByServiceJourneyID(c.UserContext(), c.Params("serviceJourneyId"), c.Params("version"), c.Params("date"))

	return sendOne(c, datedServiceJourney, err)
}

func (h *datedServiceJourneys) getByPrivateCode(c *fiber.Ctx) error {
	datedServiceJourney, err := h.service.FindByPrivateCode(c.UserContext(), c.Params("privateCode"), c.Params("version"), c.Params("date"))

	return sendOne(c, datedServiceJourney, err)
}

func (h *datedServiceJourneys) getByDatedServiceJourneyID(c *fiber.Ctx) error {
	datedServiceJourney, err := h.service.FindByDatedServiceJourneyID(c.UserContext(), c.Params("datedServiceJourneyId"))

	return sendOne(c, datedServiceJourney, err)
}

func (h *datedServiceJourneys) getByOriginalDatedServiceJourneyID(c *fiber.Ctx) error {
	datedServiceJourneys, err := h.service.FindByOriginalDatedServiceJourneyID(c.UserContext(), c.Params("originalDatedServiceJourneyId"))

	return sendMany(c, datedServiceJourneys, err)
}

func (h *datedServiceJourneys) query(c *fiber.Ctx) error {
	var params []identity.ServiceJourneyParam
	if err := c.BodyParser(&params); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Could not parse query body",
		})
	}

	datedServiceJourneys, err := h.service.FindDatedServiceJourneys(c.UserContext(), params)

	return sendMany(c, datedServiceJourneys, err)
}

func (h *datedServiceJourneys) reverseQuery(c *fiber.Ctx) error {
	var params []identity.DatedServiceJourneyParam
	if err := c.BodyParser(&params); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Could not parse query body",
		})
	}

	datedServiceJourneys, err := h.service.FindByDatedServiceJourneyIDs(c.UserContext(), params)

	return sendMany(c, datedServiceJourneys, err)
}

func sendOne(c *fiber.Ctx, datedServiceJourney *ctdf.DatedServiceJourney, err error) error {
	if err != nil {
		return sendError(c, err)
	}

	if datedServiceJourney == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "DatedServiceJourney not found",
		})
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, datedServiceJourney)
	if err != nil {
		return sendError(c, err)
	}

	return c.JSON(reduced)
}

func sendMany(c *fiber.Ctx, datedServiceJourneys []*ctdf.DatedServiceJourney, err error) error {
	if err != nil {
		return sendError(c, err)
	}

	reduced := []interface{}{}
	for _, datedServiceJourney := range datedServiceJourneys {
		item, err := sheriff.Marshal(&sheriff.Options{
			Groups: []string{"basic"},
		}, datedServiceJourney)
		if err != nil {
			return sendError(c, err)
		}

		reduced = append(reduced, item)
	}

	return c.JSON(reduced)
}

func sendError(c *fiber.Ctx, err error) error {
	if errors.Is(err, identity.ErrInvalidVersion) {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Lookup failed")

	c.SendStatus(fiber.StatusInternalServerError)
	return c.JSON(fiber.Map{
		"error": "Lookup failed",
	})
}
