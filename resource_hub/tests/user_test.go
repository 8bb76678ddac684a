package tests

import (
	"fmt"
	"net/http"
	"testing"

	"biodata_platform/resource_hub/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	userId, err := c.createUser("user1@mail.com")
	require.NoError(t, err)

	var info services.UserInfo
	require.NoError(t, c.Get(fmt.Sprintf("/user/%v", userId)).Do(&info))
	assert.Equal(t, userId, info.UserId)
	assert.Equal(t, "user1@mail.com", info.Email)

	err = c.Get(fmt.Sprintf("/user/%v", uuid.New())).DoExpectingStatus(http.StatusNotFound)
	assert.NoError(t, err)
}

func TestDuplicateUserEmail(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	_, err := c.createUser("user1@mail.com")
	require.NoError(t, err)

	// the unique constraint surfaces as a conflict, not a server error
	err = c.Post("/user/create").
		Json(map[string]string{"email": "user1@mail.com"}).
		DoExpectingStatus(http.StatusConflict)
	assert.NoError(t, err)

	err = c.Post("/user/create").
		Json(map[string]string{"email": ""}).
		DoExpectingStatus(http.StatusUnprocessableEntity)
	assert.NoError(t, err)
}
