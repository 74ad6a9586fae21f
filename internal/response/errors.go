package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrUserAccessOnly  ErrCode = "USER_ACCESS_ONLY"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"
	ErrNotEligible     ErrCode = "NOT_ELIGIBLE"
	ErrAttemptRevoked  ErrCode = "ATTEMPT_REVOKED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Tryout state machine ──────────────────────────────────────────
	ErrTryoutNotAvailable        ErrCode = "TRYOUT_NOT_AVAILABLE"
	ErrTryoutEmpty               ErrCode = "TRYOUT_EMPTY"
	ErrAttemptFinished           ErrCode = "ATTEMPT_FINISHED"
	ErrPreviousSectionUnfinished ErrCode = "PREVIOUS_SECTION_UNFINISHED"
	ErrNoActiveSection           ErrCode = "NO_ACTIVE_SECTION"
	ErrDeadlinePassed            ErrCode = "DEADLINE_PASSED"
	ErrSectionNotFinished        ErrCode = "SECTION_NOT_FINISHED"
	ErrSectionNotActive          ErrCode = "SECTION_NOT_ACTIVE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email atau kata sandi salah."
	case ErrSessionActive:
		return "Anda sudah login di perangkat lain."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrUserAccessOnly:
		return "Sumber daya ini terbatas untuk peserta."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."
	case ErrNotEligible:
		return "Tryout ini khusus untuk pengguna premium."
	case ErrAttemptRevoked:
		return "Akses Anda ke tryout ini telah dicabut."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Tryout state machine ──────────────────────────────────────────
	case ErrTryoutNotAvailable:
		return "Tryout ini saat ini tidak tersedia."
	case ErrTryoutEmpty:
		return "Tryout ini tidak memiliki subtest."
	case ErrAttemptFinished:
		return "Tryout Anda sudah selesai."
	case ErrPreviousSectionUnfinished:
		return "Selesaikan subtest sebelumnya terlebih dahulu."
	case ErrNoActiveSection:
		return "Tidak ada subtest yang sedang berjalan."
	case ErrDeadlinePassed:
		return "Waktu habis."
	case ErrSectionNotFinished:
		return "Subtest ini belum selesai."
	case ErrSectionNotActive:
		return "Subtest ini tidak sedang berjalan."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
