// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
)

// testDigest builds a 96-hex-character digest from a short seed.
func testDigest(seed string) string {
	return strings.Repeat("0", digestHexLength-len(seed)) + seed
}

func testMeasurements(seed string) Measurements {
	return Measurements{
		MRTD:  testDigest(seed),
		RTMR0: testDigest("a0"),
		RTMR1: testDigest("a1"),
		RTMR2: testDigest("a2"),
		RTMR3: testDigest("a3"),
	}
}

func testIdentity(t *testing.T, seed string) Identity {
	t.Helper()
	ppid, err := ParsePPID("00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatalf("ParsePPID: %v", err)
	}
	return Identity{Measurements: testMeasurements(seed), PPID: ppid}
}

func generateKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return pub, priv
}

func TestVerifyRoundTrip(t *testing.T) {
	rootPub, rootPriv := generateKey(t)
	_, enclavePriv := generateKey(t)

	verifier, err := NewQuoteVerifier(rootPub)
	if err != nil {
		t.Fatalf("NewQuoteVerifier: %v", err)
	}

	identity := testIdentity(t, "beef")
	report, err := MintReport(rootPriv, enclavePriv, identity, []byte("binding"))
	if err != nil {
		t.Fatalf("MintReport: %v", err)
	}

	got, err := verifier.Verify(report)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Measurements != identity.Measurements {
		t.Errorf("measurements = %+v, want %+v", got.Measurements, identity.Measurements)
	}
	if got.PPID != identity.PPID {
		t.Errorf("ppid = %s, want %s", got.PPID, identity.PPID)
	}
}

func TestVerifyRejectsUnknownRoot(t *testing.T) {
	rootPub, _ := generateKey(t)
	_, otherRootPriv := generateKey(t)
	_, enclavePriv := generateKey(t)

	verifier, err := NewQuoteVerifier(rootPub)
	if err != nil {
		t.Fatalf("NewQuoteVerifier: %v", err)
	}

	report, err := MintReport(otherRootPriv, enclavePriv, testIdentity(t, "beef"), nil)
	if err != nil {
		t.Fatalf("MintReport: %v", err)
	}

	_, err = verifier.Verify(report)
	if !errors.Is(err, ErrAttestationInvalid) {
		t.Errorf("Verify error = %v, want ErrAttestationInvalid", err)
	}
}

func TestVerifyAcceptsAnyConfiguredRoot(t *testing.T) {
	rootAPub, _ := generateKey(t)
	rootBPub, rootBPriv := generateKey(t)
	_, enclavePriv := generateKey(t)

	verifier, err := NewQuoteVerifier(rootAPub, rootBPub)
	if err != nil {
		t.Fatalf("NewQuoteVerifier: %v", err)
	}

	report, err := MintReport(rootBPriv, enclavePriv, testIdentity(t, "beef"), nil)
	if err != nil {
		t.Fatalf("MintReport: %v", err)
	}
	if _, err := verifier.Verify(report); err != nil {
		t.Errorf("Verify with second root: %v", err)
	}
}

func TestVerifyRejectsTamperedQuote(t *testing.T) {
	rootPub, rootPriv := generateKey(t)
	_, enclavePriv := generateKey(t)

	verifier, err := NewQuoteVerifier(rootPub)
	if err != nil {
		t.Fatalf("NewQuoteVerifier: %v", err)
	}

	report, err := MintReport(rootPriv, enclavePriv, testIdentity(t, "beef"), nil)
	if err != nil {
		t.Fatalf("MintReport: %v", err)
	}
	report.Quote[len(report.Quote)-1] ^= 0x01

	_, err = verifier.Verify(report)
	if !errors.Is(err, ErrAttestationInvalid) {
		t.Errorf("Verify error = %v, want ErrAttestationInvalid", err)
	}
}

func TestVerifyRejectsSwappedAttestationKey(t *testing.T) {
	rootPub, rootPriv := generateKey(t)
	_, enclavePriv := generateKey(t)
	imposterPub, _ := generateKey(t)

	verifier, err := NewQuoteVerifier(rootPub)
	if err != nil {
		t.Fatalf("NewQuoteVerifier: %v", err)
	}

	report, err := MintReport(rootPriv, enclavePriv, testIdentity(t, "beef"), nil)
	if err != nil {
		t.Fatalf("MintReport: %v", err)
	}
	report.AttestationKey = imposterPub

	_, err = verifier.Verify(report)
	if !errors.Is(err, ErrAttestationInvalid) {
		t.Errorf("Verify error = %v, want ErrAttestationInvalid", err)
	}
}

func TestVerifyRejectsMalformedReport(t *testing.T) {
	rootPub, _ := generateKey(t)
	verifier, err := NewQuoteVerifier(rootPub)
	if err != nil {
		t.Fatalf("NewQuoteVerifier: %v", err)
	}

	_, err = verifier.Verify(Report{})
	if !errors.Is(err, ErrAttestationInvalid) {
		t.Errorf("Verify error = %v, want ErrAttestationInvalid", err)
	}
}

func TestMintReportRejectsBadIdentity(t *testing.T) {
	_, rootPriv := generateKey(t)
	_, enclavePriv := generateKey(t)

	bad := testIdentity(t, "beef")
	bad.Measurements.RTMR2 = "short"
	if _, err := MintReport(rootPriv, enclavePriv, bad, nil); err == nil {
		t.Error("MintReport with malformed measurements succeeded")
	}

	zeroPPID := testIdentity(t, "beef")
	zeroPPID.PPID = PPID{}
	if _, err := MintReport(rootPriv, enclavePriv, zeroPPID, nil); err == nil {
		t.Error("MintReport with zero ppid succeeded")
	}
}

func TestFingerprintStability(t *testing.T) {
	a := testMeasurements("beef")
	b := testMeasurements("beef")
	c := testMeasurements("dead")

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal measurement sets have different fingerprints")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different measurement sets share a fingerprint")
	}
	if len(a.Fingerprint()) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex characters", len(a.Fingerprint()))
	}
}

func TestPPIDTextRoundTrip(t *testing.T) {
	ppid, err := ParsePPID("00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatalf("ParsePPID: %v", err)
	}
	text, err := ppid.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var decoded PPID
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded != ppid {
		t.Errorf("round trip = %s, want %s", decoded, ppid)
	}

	if _, err := ParsePPID("tooshort"); err == nil {
		t.Error("ParsePPID accepted short input")
	}
}
