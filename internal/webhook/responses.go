package webhook

import "github.com/gofiber/fiber/v2"

// queued acknowledges an accepted job with its queue ID
func queued(c *fiber.Ctx, jobID string) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "queued",
		"job_id": jobID,
	})
}

// ignored reports an event that does not trigger a job
func ignored(c *fiber.Ctx, reason string) error {
	return c.JSON(fiber.Map{
		"status":  "ignored",
		"message": reason,
	})
}

// skipped reports an event that would trigger a job but was suppressed,
// e.g. by a skip label or an existing fix branch
func skipped(c *fiber.Ctx, reason string) error {
	return c.JSON(fiber.Map{
		"status":  "skipped",
		"message": reason,
	})
}
