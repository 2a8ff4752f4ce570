package middleware

import "github.com/gin-gonic/gin"

// employeeIDKey is the key used to store the authenticated employee's ID.
const employeeIDKey = contextKey("employeeID")

// GetEmployeeIDFromContext retrieves the authenticated employee ID from the
// Gin context. It returns the ID and a boolean indicating if it was found.
func GetEmployeeIDFromContext(c *gin.Context) (string, bool) {
	val := c.Request.Context().Value(employeeIDKey)
	if val == nil {
		return "", false
	}
	employeeID, ok := val.(string)
	if !ok || employeeID == "" {
		return "", false
	}
	return employeeID, true
}
