//go:build integration

// Package integration contains end-to-end API flow tests exercising the full
// promotion lifecycle: create, soft delete into trash, restore, and purge.
package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_CreateDeleteRestoreFlow tests the complete happy path:
// 1. Create a promotion via API
// 2. Soft delete it into trash
// 3. Confirm it is gone from the live table and present in the trash listing
// 4. Restore it
// 5. Confirm it is back, field for field, and the trash row is gone
func TestE2E_CreateDeleteRestoreFlow(t *testing.T) {
	cleanupTables(t)

	// Step 1: Create a promotion via API
	t.Log("Step 1: Creating promotion via API")
	createResp, err := postJSON(formatURL("/api/promotions"), map[string]interface{}{
		"name":           "E2E_WINTER_SALE",
		"description":    "Seasonal discount",
		"start_date":     "2025-01-01",
		"end_date":       "2025-01-31",
		"discount_value": 20,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, createResp.StatusCode, "Should create promotion successfully")

	var created map[string]interface{}
	require.NoError(t, readJSONResponse(createResp, &created))
	promotionID, ok := created["id"].(string)
	require.True(t, ok, "Create response should carry the new id")

	// Step 2: Soft delete via API
	t.Log("Step 2: Soft deleting promotion")
	delResp, err := deleteJSON(formatURL("/api/promotions/"+promotionID), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, delResp.StatusCode, "Should soft delete successfully")

	var delResult map[string]interface{}
	require.NoError(t, readJSONResponse(delResp, &delResult))
	assert.Equal(t, true, delResult["deleted"])

	// Step 3: Live record gone, trash listing has it
	t.Log("Step 3: Verifying live record is gone and trash has it")
	getResp, err := getJSON(formatURL("/api/promotions/" + promotionID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode, "Deleted promotion should 404")
	getResp.Body.Close()

	trashResp, err := getJSON(formatURL("/api/trash"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, trashResp.StatusCode)

	var trashed []map[string]interface{}
	require.NoError(t, readJSONResponse(trashResp, &trashed))
	require.Len(t, trashed, 1, "Trash should hold exactly the one deleted promotion")
	assert.Equal(t, promotionID, trashed[0]["id"])
	assert.Equal(t, "E2E_WINTER_SALE", trashed[0]["name"])
	// Fresh delete: full window remains
	assert.Equal(t, float64(30), trashed[0]["days_until_purge"])

	// Step 4: Restore via API
	t.Log("Step 4: Restoring promotion")
	restoreResp, err := postJSON(formatURL("/api/trash/"+promotionID+"/restore"), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, restoreResp.StatusCode, "Should restore successfully")

	var restoreResult map[string]interface{}
	require.NoError(t, readJSONResponse(restoreResp, &restoreResult))
	assert.Equal(t, true, restoreResult["restored"])

	// Step 5: Promotion back with identical fields, trash row gone
	t.Log("Step 5: Verifying round-trip fidelity")
	verifyResp, err := getJSON(formatURL("/api/promotions/" + promotionID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, verifyResp.StatusCode, "Restored promotion should be retrievable")

	var restored map[string]interface{}
	require.NoError(t, readJSONResponse(verifyResp, &restored))
	assert.Equal(t, promotionID, restored["id"], "Identifier survives the round trip")
	assert.Equal(t, "E2E_WINTER_SALE", restored["name"])
	assert.Equal(t, "Seasonal discount", restored["description"])
	assert.Equal(t, "2025-01-01", restored["start_date"])
	assert.Equal(t, "2025-01-31", restored["end_date"])
	assert.Equal(t, float64(20), restored["discount_value"])

	assert.Equal(t, 0, countTrashRows(t, promotionID), "Trash row should be removed after restore")
}

// TestE2E_RetentionWindowGate verifies the restore gate at the retention
// boundary: a record 29 days old restores, a record exactly 30 days old is
// gone for good (410).
func TestE2E_RetentionWindowGate(t *testing.T) {
	cleanupTables(t)

	createAndTrash := func(name string) string {
		createResp, err := postJSON(formatURL("/api/promotions"), map[string]interface{}{
			"name":           name,
			"start_date":     "2025-01-01",
			"end_date":       "2025-01-31",
			"discount_value": 10,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, createResp.StatusCode)

		var created map[string]interface{}
		require.NoError(t, readJSONResponse(createResp, &created))
		id := created["id"].(string)

		delResp, err := deleteJSON(formatURL("/api/promotions/"+id), nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, delResp.StatusCode)
		delResp.Body.Close()
		return id
	}

	t.Log("Step 1: Trashing two promotions and backdating them")
	insideID := createAndTrash("E2E_INSIDE_WINDOW")
	expiredID := createAndTrash("E2E_PAST_WINDOW")

	backdateTrashEntry(t, insideID, 29*24*time.Hour)
	backdateTrashEntry(t, expiredID, 30*24*time.Hour)

	// Step 2: The restorable listing excludes the expired record already
	t.Log("Step 2: Verifying trash listings split on the boundary")
	trashResp, err := getJSON(formatURL("/api/trash"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, trashResp.StatusCode)

	var restorable []map[string]interface{}
	require.NoError(t, readJSONResponse(trashResp, &restorable))
	require.Len(t, restorable, 1)
	assert.Equal(t, insideID, restorable[0]["id"])
	assert.Equal(t, float64(1), restorable[0]["days_until_purge"])

	purgeResp, err := getJSON(formatURL("/api/trash/purgeable"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, purgeResp.StatusCode)

	var purgeable []map[string]interface{}
	require.NoError(t, readJSONResponse(purgeResp, &purgeable))
	require.Len(t, purgeable, 1)
	assert.Equal(t, expiredID, purgeable[0]["id"])
	assert.Equal(t, float64(0), purgeable[0]["days_until_purge"])

	// Step 3: Restore attempts
	t.Log("Step 3: Restoring both, expecting one 200 and one 410")
	okResp, err := postJSON(formatURL("/api/trash/"+insideID+"/restore"), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, okResp.StatusCode, "29-day-old record should restore")
	okResp.Body.Close()

	goneResp, err := postJSON(formatURL("/api/trash/"+expiredID+"/restore"), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, goneResp.StatusCode, "30-day-old record should be past the window")

	var goneResult map[string]interface{}
	require.NoError(t, readJSONResponse(goneResp, &goneResult))
	assert.Equal(t, false, goneResult["restored"])

	// The expired record stays in trash until explicitly purged
	assert.Equal(t, 1, countTrashRows(t, expiredID))
}

// TestE2E_PermanentDeleteIgnoresRetention verifies a caller may purge a fresh
// trash record without waiting out the window.
func TestE2E_PermanentDeleteIgnoresRetention(t *testing.T) {
	cleanupTables(t)

	createResp, err := postJSON(formatURL("/api/promotions"), map[string]interface{}{
		"name":           "E2E_PURGE_EARLY",
		"start_date":     "2025-03-01",
		"end_date":       "2025-03-31",
		"discount_value": 15,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, createResp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, readJSONResponse(createResp, &created))
	id := created["id"].(string)

	delResp, err := deleteJSON(formatURL("/api/promotions/"+id), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, delResp.StatusCode)
	delResp.Body.Close()

	purgeResp, err := deleteJSON(formatURL("/api/trash/"+id), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, purgeResp.StatusCode, "Fresh record should purge immediately")

	var purgeResult map[string]interface{}
	require.NoError(t, readJSONResponse(purgeResp, &purgeResult))
	assert.Equal(t, true, purgeResult["deleted"])

	assert.Equal(t, 0, countTrashRows(t, id))

	// Purged means unrestorable: the restore endpoint now reports not found
	restoreResp, err := postJSON(formatURL("/api/trash/"+id+"/restore"), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, restoreResp.StatusCode)
	restoreResp.Body.Close()
}

// TestE2E_DeleteWithActorAudit verifies the deleting user lands in the trash
// record and drives the per-user listing.
func TestE2E_DeleteWithActorAudit(t *testing.T) {
	cleanupTables(t)

	ctxUser := seedUser(t)

	createResp, err := postJSON(formatURL("/api/promotions"), map[string]interface{}{
		"name":           "E2E_AUDITED_DELETE",
		"start_date":     "2025-05-01",
		"end_date":       "2025-05-31",
		"discount_value": 25,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, createResp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, readJSONResponse(createResp, &created))
	id := created["id"].(string)

	delResp, err := deleteJSON(formatURL("/api/promotions/"+id), map[string]string{
		"deleted_by": ctxUser,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, delResp.StatusCode)
	delResp.Body.Close()

	byUserResp, err := getJSON(formatURL("/api/trash/users/" + ctxUser))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, byUserResp.StatusCode)

	var byUser []map[string]interface{}
	require.NoError(t, readJSONResponse(byUserResp, &byUser))
	require.Len(t, byUser, 1)
	assert.Equal(t, id, byUser[0]["id"])
	assert.Equal(t, ctxUser, byUser[0]["deleted_by"])
}

// TestE2E_OverlapCountIsAdvisory verifies an overlapping creation succeeds and
// the overlaps endpoint reports the conflict.
func TestE2E_OverlapCountIsAdvisory(t *testing.T) {
	cleanupTables(t)

	// Seeded ACTIVE status id from migrations/schema.sql
	const statusActiveID = "11111111-1111-4111-8111-111111111111"

	categoryID := seedCategory(t)

	first, err := postJSON(formatURL("/api/promotions"), map[string]interface{}{
		"name":           "E2E_JANUARY_SALE",
		"start_date":     "2025-01-01",
		"end_date":       "2025-01-31",
		"discount_value": 10,
		"category_id":    categoryID,
		"status_id":      statusActiveID,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	first.Body.Close()

	// Overlapping window in the same category still creates
	second, err := postJSON(formatURL("/api/promotions"), map[string]interface{}{
		"name":           "E2E_OVERLAPPING_SALE",
		"start_date":     "2025-01-15",
		"end_date":       "2025-02-15",
		"discount_value": 20,
		"category_id":    categoryID,
		"status_id":      statusActiveID,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, second.StatusCode, "Overlap must not block creation")

	var secondBody map[string]interface{}
	require.NoError(t, readJSONResponse(second, &secondBody))
	assert.Equal(t, float64(1), secondBody["overlap_count"], "Create response should report the conflict")

	// The standalone query agrees
	countResp, err := getJSON(formatURL(
		"/api/promotions/overlaps?category_id=" + categoryID + "&start_date=2025-01-15&end_date=2025-02-15"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, countResp.StatusCode)

	var countBody map[string]interface{}
	require.NoError(t, readJSONResponse(countResp, &countBody))
	assert.GreaterOrEqual(t, countBody["count"], float64(1))
}
