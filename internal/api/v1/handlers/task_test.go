package handlers_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivial-go/internal/config"
)

func futureExpiry() string {
	return time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
}

func taskPayload(title, category string) map[string]string {
	return map[string]string{
		"title":       title,
		"description": "do the thing",
		"category":    category,
		"price":       "10.00",
		"expires_at":  futureExpiry(),
	}
}

func TestTaskLifecycle(t *testing.T) {
	app := createTestApp()

	creatorID, creatorCookie, _ := registerVerifiedUser(t, app, "creator")
	executorID, executorCookie, _ := registerVerifiedUser(t, app, "executor")

	// Buat task
	resp, result := doJSON(t, app, "POST", "/me/tasks", taskPayload("T", "text"), creatorCookie)
	require.Equal(t, 201, resp.StatusCode)
	taskID := int(result["data"].(map[string]interface{})["id"].(float64))

	// Counter created_tasks naik tepat satu
	var createdTasks int
	require.NoError(t, config.DB.QueryRow(
		"SELECT created_tasks FROM users WHERE id = $1", creatorID).Scan(&createdTasks))
	assert.Equal(t, 1, createdTasks)

	// Detail task menyertakan profil creator
	resp, result = doJSON(t, app, "GET", fmt.Sprintf("/tasks/%d", taskID), nil, "")
	require.Equal(t, 200, resp.StatusCode)
	task := result["data"].(map[string]interface{})
	assert.Equal(t, "T", task["title"])
	assert.Equal(t, false, task["is_completed"])
	assert.Equal(t, "10.00", task["price"])
	creator := task["creator"].(map[string]interface{})
	assert.Equal(t, float64(creatorID), creator["id"])

	// Executor mengambil task
	resp, result = doJSON(t, app, "POST", fmt.Sprintf("/take-task/%d", taskID), nil, executorCookie)
	require.Equal(t, 200, resp.StatusCode)
	claimID := int(result["data"].(map[string]interface{})["claim_id"].(float64))

	// Task muncul di daftar taken-tasks milik executor
	resp, result = doJSON(t, app, "GET", "/me/taken-tasks", nil, executorCookie)
	require.Equal(t, 200, resp.StatusCode)
	taken := result["data"].([]interface{})
	require.Len(t, taken, 1)
	assert.Equal(t, float64(taskID), taken[0].(map[string]interface{})["id"])

	// Executor menutup claim-nya
	resp, _ = doJSON(t, app, "POST", fmt.Sprintf("/tasks/close/%d", claimID), nil, executorCookie)
	require.Equal(t, 200, resp.StatusCode)

	// Task ditandai selesai, barisnya tetap ada
	resp, result = doJSON(t, app, "GET", fmt.Sprintf("/tasks/%d", taskID), nil, "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, result["data"].(map[string]interface{})["is_completed"])

	// Claim sudah hilang
	var claimExists bool
	require.NoError(t, config.DB.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM taken_tasks WHERE id = $1)", claimID).Scan(&claimExists))
	assert.False(t, claimExists)

	// Counter completed_tasks milik penutup naik tepat satu
	var completedTasks int
	require.NoError(t, config.DB.QueryRow(
		"SELECT completed_tasks FROM users WHERE id = $1", executorID).Scan(&completedTasks))
	assert.Equal(t, 1, completedTasks)

	// Close kedua atas claim yang sama mendapat 404
	resp, _ = doJSON(t, app, "POST", fmt.Sprintf("/tasks/close/%d", claimID), nil, executorCookie)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestTakeTaskConflict(t *testing.T) {
	app := createTestApp()

	_, creatorCookie, _ := registerVerifiedUser(t, app, "conflictowner")
	_, firstCookie, _ := registerVerifiedUser(t, app, "first")
	_, secondCookie, _ := registerVerifiedUser(t, app, "second")

	resp, result := doJSON(t, app, "POST", "/me/tasks", taskPayload("race", "web"), creatorCookie)
	require.Equal(t, 201, resp.StatusCode)
	taskID := int(result["data"].(map[string]interface{})["id"].(float64))

	resp, _ = doJSON(t, app, "POST", fmt.Sprintf("/take-task/%d", taskID), nil, firstCookie)
	require.Equal(t, 200, resp.StatusCode)

	// Claim kedua atas task yang sama ditolak 409
	resp, _ = doJSON(t, app, "POST", fmt.Sprintf("/take-task/%d", taskID), nil, secondCookie)
	assert.Equal(t, 409, resp.StatusCode)

	// Hanya ada satu claim untuk task ini
	var claims int
	require.NoError(t, config.DB.QueryRow(
		"SELECT COUNT(*) FROM taken_tasks WHERE task_id = $1", taskID).Scan(&claims))
	assert.Equal(t, 1, claims)
}

func TestTakeTaskNotFound(t *testing.T) {
	app := createTestApp()

	_, cookie, _ := registerVerifiedUser(t, app, "taker404")

	resp, _ := doJSON(t, app, "POST", "/take-task/999999999", nil, cookie)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestCreateTaskValidation(t *testing.T) {
	app := createTestApp()

	_, cookie, _ := registerVerifiedUser(t, app, "validator")

	// Field wajib hilang
	resp, _ := doJSON(t, app, "POST", "/me/tasks", map[string]string{"title": "x"}, cookie)
	assert.Equal(t, 400, resp.StatusCode)

	// Harga bukan angka desimal
	payload := taskPayload("bad price", "text")
	payload["price"] = "ten dollars"
	resp, _ = doJSON(t, app, "POST", "/me/tasks", payload, cookie)
	assert.Equal(t, 400, resp.StatusCode)

	// Lebih dari dua digit pecahan
	payload = taskPayload("bad precision", "text")
	payload["price"] = "10.005"
	resp, _ = doJSON(t, app, "POST", "/me/tasks", payload, cookie)
	assert.Equal(t, 400, resp.StatusCode)

	// Tanggal kedaluwarsa tidak bisa diparse
	payload = taskPayload("bad expiry", "text")
	payload["expires_at"] = "tomorrow"
	resp, _ = doJSON(t, app, "POST", "/me/tasks", payload, cookie)
	assert.Equal(t, 400, resp.StatusCode)

	// Kategori di luar enum, termasuk "all" yang hanya untuk filter
	payload = taskPayload("bad category", "all")
	resp, _ = doJSON(t, app, "POST", "/me/tasks", payload, cookie)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestListMyTasksIsolation(t *testing.T) {
	app := createTestApp()

	_, cookieA, _ := registerVerifiedUser(t, app, "alice")
	_, cookieB, _ := registerVerifiedUser(t, app, "bob")

	resp, _ := doJSON(t, app, "POST", "/me/tasks", taskPayload("a-task", "design"), cookieA)
	require.Equal(t, 201, resp.StatusCode)
	resp, _ = doJSON(t, app, "POST", "/me/tasks", taskPayload("b-task", "design"), cookieB)
	require.Equal(t, 201, resp.StatusCode)

	resp, result := doJSON(t, app, "GET", "/me/tasks", nil, cookieA)
	require.Equal(t, 200, resp.StatusCode)
	for _, raw := range result["data"].([]interface{}) {
		task := raw.(map[string]interface{})
		assert.NotEqual(t, "b-task", task["title"])
	}
}

func TestListAllTasksCategoryFilter(t *testing.T) {
	app := createTestApp()

	_, cookie, _ := registerVerifiedUser(t, app, "cataloger")

	resp, _ := doJSON(t, app, "POST", "/me/tasks", taskPayload("video one", "video"), cookie)
	require.Equal(t, 201, resp.StatusCode)
	resp, _ = doJSON(t, app, "POST", "/me/tasks", taskPayload("prog one", "programming"), cookie)
	require.Equal(t, 201, resp.StatusCode)

	// Filter literal per kategori
	resp, result := doJSON(t, app, "GET", "/tasks?category=video", nil, "")
	require.Equal(t, 200, resp.StatusCode)
	tasks := result["data"].([]interface{})
	require.NotEmpty(t, tasks)
	for _, raw := range tasks {
		assert.Equal(t, "video", raw.(map[string]interface{})["category"])
	}

	// "all" berarti tanpa filter, bukan pencocokan literal
	resp, result = doJSON(t, app, "GET", "/tasks?category=all", nil, "")
	require.Equal(t, 200, resp.StatusCode)
	categories := map[string]bool{}
	for _, raw := range result["data"].([]interface{}) {
		categories[raw.(map[string]interface{})["category"].(string)] = true
	}
	assert.True(t, categories["video"])
	assert.True(t, categories["programming"])
}

func TestDeleteTaskOwnership(t *testing.T) {
	app := createTestApp()

	_, cookieOwner, _ := registerVerifiedUser(t, app, "owner")
	_, cookieOther, _ := registerVerifiedUser(t, app, "intruder")

	resp, result := doJSON(t, app, "POST", "/me/tasks", taskPayload("mine", "other"), cookieOwner)
	require.Equal(t, 201, resp.StatusCode)
	taskID := int(result["data"].(map[string]interface{})["id"].(float64))

	// User lain tidak menemukan task ini lewat filter kepemilikan
	resp, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/me/tasks?task_id=%d", taskID), nil, cookieOther)
	assert.Equal(t, 404, resp.StatusCode)

	// Pemiliknya bisa, dengan task_id lewat query string
	resp, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/me/tasks?task_id=%d", taskID), nil, cookieOwner)
	assert.Equal(t, 204, resp.StatusCode)

	// Dan juga lewat body untuk task berikutnya
	resp, result = doJSON(t, app, "POST", "/me/tasks", taskPayload("mine too", "other"), cookieOwner)
	require.Equal(t, 201, resp.StatusCode)
	taskID = int(result["data"].(map[string]interface{})["id"].(float64))
	resp, _ = doJSON(t, app, "DELETE", "/me/tasks", map[string]int{"task_id": taskID}, cookieOwner)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestExpiredTaskReadsCompleted(t *testing.T) {
	app := createTestApp()

	userID, _, _ := registerVerifiedUser(t, app, "expired")

	// Task yang sudah lewat tenggat disisipkan langsung ke database
	var taskID int
	require.NoError(t, config.DB.QueryRow(
		`INSERT INTO created_tasks (creator_id, title, description, category, price, expires_at)
		 VALUES ($1, 'stale', 'past due', 'text', 5.00, NOW() - INTERVAL '1 hour') RETURNING id`,
		userID).Scan(&taskID))

	// Flag di baris masih false, tapi pembacaan menghitungnya selesai
	resp, result := doJSON(t, app, "GET", fmt.Sprintf("/tasks/%d", taskID), nil, "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, result["data"].(map[string]interface{})["is_completed"])

	var stored bool
	require.NoError(t, config.DB.QueryRow(
		"SELECT is_completed FROM created_tasks WHERE id = $1", taskID).Scan(&stored))
	assert.False(t, stored)
}
