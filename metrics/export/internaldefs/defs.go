package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef binds a client counter to its exported name.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef binds a client histogram to its exported name.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher backpressure.
const AuditDroppedName = "goauthclient_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricInitRestored, Name: "goauthclient_init_restored_total", Help: "Session restorations completed through refresh."},
	{ID: goAuthClient.MetricInitCacheRestored, Name: "goauthclient_init_cache_restored_total", Help: "Session restorations served from the snapshot cache."},
	{ID: goAuthClient.MetricInitNoSession, Name: "goauthclient_init_no_session_total", Help: "Restorations that found no session marker."},
	{ID: goAuthClient.MetricInitInvalidCookie, Name: "goauthclient_init_invalid_cookie_total", Help: "Restorations abandoned on a malformed user_info cookie."},
	{ID: goAuthClient.MetricInitExhausted, Name: "goauthclient_init_exhausted_total", Help: "Restorations that ran out of attempts."},
	{ID: goAuthClient.MetricInitRejected, Name: "goauthclient_init_rejected_total", Help: "Restorations stopped by a rejected refresh."},
	{ID: goAuthClient.MetricRefreshSuccess, Name: "goauthclient_refresh_success_total", Help: "Committed token refreshes."},
	{ID: goAuthClient.MetricRefreshAuthFailure, Name: "goauthclient_refresh_auth_failure_total", Help: "Refreshes rejected with 401."},
	{ID: goAuthClient.MetricRefreshTransientFailure, Name: "goauthclient_refresh_transient_failure_total", Help: "Refreshes failed by the network or a non-401 status."},
	{ID: goAuthClient.MetricRefreshProtocolFailure, Name: "goauthclient_refresh_protocol_failure_total", Help: "Refresh responses without an access token."},
	{ID: goAuthClient.MetricRefreshIdentityMissing, Name: "goauthclient_refresh_identity_missing_total", Help: "Refreshes with no resolvable identity."},
	{ID: goAuthClient.MetricProactiveRefresh, Name: "goauthclient_proactive_refresh_total", Help: "Proactive refresh timer firings."},
	{ID: goAuthClient.MetricOTPRequested, Name: "goauthclient_otp_requested_total", Help: "Accepted OTP delivery requests."},
	{ID: goAuthClient.MetricOTPVerifySuccess, Name: "goauthclient_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: goAuthClient.MetricOTPVerifyFailure, Name: "goauthclient_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: goAuthClient.MetricCallSuccess, Name: "goauthclient_call_success_total", Help: "Successful authenticated calls."},
	{ID: goAuthClient.MetricCallFailure, Name: "goauthclient_call_failure_total", Help: "Failed authenticated calls."},
	{ID: goAuthClient.MetricCallTimeout, Name: "goauthclient_call_timeout_total", Help: "Authenticated calls aborted by the client timeout."},
	{ID: goAuthClient.MetricReauth, Name: "goauthclient_reauth_total", Help: "Re-authentications triggered by a 401."},
	{ID: goAuthClient.MetricLogout, Name: "goauthclient_logout_total", Help: "Logout operations."},
	{ID: goAuthClient.MetricSessionRepaired, Name: "goauthclient_session_repaired_total", Help: "Authenticated flags restored by reconciliation."},
	{ID: goAuthClient.MetricSessionExpired, Name: "goauthclient_session_expired_total", Help: "Sessions whose token reached the safety buffer."},
	{ID: goAuthClient.MetricSessionCleared, Name: "goauthclient_session_cleared_total", Help: "Session wipes."},
	{ID: goAuthClient.MetricCacheHit, Name: "goauthclient_cache_hit_total", Help: "Snapshot cache hits."},
	{ID: goAuthClient.MetricCacheMiss, Name: "goauthclient_cache_miss_total", Help: "Snapshot cache misses."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricCallLatency, Name: "goauthclient_call_latency_seconds", Help: "Authenticated call latency."},
}

// HistogramBounds holds the finite upper bounds, in seconds, of the eight
// snapshot buckets. The last bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters without native
// histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
