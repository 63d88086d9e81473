// Package fingerprint derives a stable pseudo-identifier for a browser/device
// from client-reported environment signals.
//
// The fingerprint is a usability heuristic for detecting accidental
// multi-device use, not a security boundary: every input is client-reported
// and therefore spoofable. The session security token is what actually binds
// a session to a device.
package fingerprint

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
)

// Prefix tags every derived fingerprint.
const Prefix = "fp_"

// Compute folds the signals into a short hex token. It is deterministic for
// identical signals and never fails: a fully empty signal set falls back to a
// time+random token, which is explicitly non-deterministic and accepted as a
// weak degradation.
func Compute(sig model.FingerprintSignals) string {
	if isEmpty(sig) {
		return fallback()
	}

	parts := []string{
		sig.UserAgent,
		sig.Language,
		strconv.Itoa(sig.ScreenWidth) + "x" + strconv.Itoa(sig.ScreenHeight),
		strconv.Itoa(sig.ColorDepth),
		strconv.Itoa(sig.TimezoneOffset),
		strconv.FormatBool(sig.CookiesEnabled),
		sig.DoNotTrack,
		strconv.Itoa(sig.HardwareConcurrency),
		sig.Platform,
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s%016x", Prefix, h.Sum64())
}

func isEmpty(sig model.FingerprintSignals) bool {
	return sig.UserAgent == "" &&
		sig.Language == "" &&
		sig.ScreenWidth == 0 &&
		sig.ScreenHeight == 0 &&
		sig.ColorDepth == 0 &&
		sig.TimezoneOffset == 0 &&
		!sig.CookiesEnabled &&
		sig.DoNotTrack == "" &&
		sig.HardwareConcurrency == 0 &&
		sig.Platform == ""
}

func fallback() string {
	return fmt.Sprintf("%sfb_%d%04d", Prefix, time.Now().UnixNano(), rand.Intn(10000))
}
