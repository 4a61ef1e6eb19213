package controller

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"prospector/utils"
)

const tokenTTL = 12 * time.Hour

// AuthController exchanges the configured access key for a short-lived
// session token. The dashboard has no user accounts; one shared key
// guards the review surface.
type AuthController struct {
	Secret    string
	AccessKey string
	Logger    *logrus.Logger
}

func NewAuthController(secret, accessKey string, logger *logrus.Logger) *AuthController {
	return &AuthController{Secret: secret, AccessKey: accessKey, Logger: logger}
}

func (ac *AuthController) ExchangeToken(c *fiber.Ctx) error {
	var input struct {
		AccessKey string `json:"access_key" validate:"required"`
		Reviewer  string `json:"reviewer"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if ac.Secret == "" || ac.AccessKey == "" {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "Auth is not configured on this deployment",
		})
	}

	if subtle.ConstantTimeCompare([]byte(input.AccessKey), []byte(ac.AccessKey)) != 1 {
		ac.Logger.WithField("reviewer", input.Reviewer).Warn("rejected token exchange with bad access key")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid access key",
		})
	}

	reviewer := input.Reviewer
	if reviewer == "" {
		reviewer = "reviewer"
	}
	token, err := utils.GenerateToken(ac.Secret, reviewer, tokenTTL)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"expires_in":   int(tokenTTL.Seconds()),
	})
}
