package mysql

const reviewColumns = `
  id,
  appointment_id,
  reviewer_id,
  user_id,
  review_type,
  rating,
  comment,
  private_comment,
  reviewer_name,
  aspects,
  is_published,
  is_employee_copy,
  is_business_review,
  source_review_id,
  created_at`

const insertReviewSQL = `
INSERT INTO reviews
  (id, appointment_id, reviewer_id, user_id, review_type, rating,
   comment, private_comment, reviewer_name, aspects,
   is_published, is_employee_copy, is_business_review, source_review_id, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getReviewSQL = `SELECT` + reviewColumns + `
FROM reviews
WHERE id = ?
`

const hasOriginalSQL = `
SELECT 1
FROM reviews
WHERE reviewer_id = ? AND appointment_id = ? AND user_id = ? AND source_review_id IS NULL
LIMIT 1
`

const listByAppointmentSQL = `SELECT` + reviewColumns + `
FROM reviews
WHERE appointment_id = ?
ORDER BY created_at, id
`

// Idempotent: re-publishing reaffirms the same value.
const publishAppointmentSQL = `
UPDATE reviews SET is_published = 1 WHERE appointment_id = ?
`

const listPublishedAboutSQL = `SELECT` + reviewColumns + `
FROM reviews
WHERE user_id = ? AND is_published = 1
ORDER BY created_at DESC, id DESC
`

const listAuthoredBySQL = `SELECT` + reviewColumns + `
FROM reviews
WHERE reviewer_id = ?
ORDER BY created_at DESC, id DESC
`

const listUnpublishedAppointmentsSQL = `
SELECT DISTINCT appointment_id
FROM reviews
WHERE is_published = 0
  AND review_type IN ('homeowner_to_cleaner', 'cleaner_to_homeowner')
ORDER BY appointment_id
`

const deleteReviewSQL = `
DELETE FROM reviews WHERE id = ?
`

const getPreferredSQL = `
SELECT home_id, cleaner_id, set_at, set_by
FROM home_preferred_cleaners
WHERE home_id = ? AND cleaner_id = ?
`

// The no-op update keeps the original set_at/set_by when the pair already
// exists, making repeated preferred requests idempotent.
const insertPreferredSQL = `
INSERT INTO home_preferred_cleaners (home_id, cleaner_id, set_at, set_by)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE home_id = home_id
`

const deletePreferredSQL = `
DELETE FROM home_preferred_cleaners WHERE home_id = ? AND cleaner_id = ?
`
