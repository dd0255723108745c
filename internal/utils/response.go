package utils

import "github.com/gofiber/fiber/v2"

// ErrorResponse describes the body of a failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SendSuccess sends a 200 response whose fields sit next to success and message.
func SendSuccess(c *fiber.Ctx, message string, fields fiber.Map) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, fields)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
// success and message always win over fields of the same name.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, fields fiber.Map) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	body := make(fiber.Map, len(fields)+2)
	for key, value := range fields {
		body[key] = value
	}
	body["success"] = true
	body["message"] = message

	return c.Status(status).JSON(body)
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithDetail(c, status, message, "")
}

// SendErrorWithDetail sends an error response carrying a machine-oriented detail string.
func SendErrorWithDetail(c *fiber.Ctx, status int, message, detail string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Message: message,
		Error:   detail,
	})
}
