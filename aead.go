// aead.go: Authenticated encryption contexts (CCM, CCM*, GCM).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import "fmt"

// AEADLengths declares the total AAD and payload lengths in advance.
type AEADLengths struct {
	AAD     int64
	Payload int64
}

// AEADOptions configure one AEAD operation.
type AEADOptions struct {
	Nonce []byte
	// MACLen is the tag length in bytes. CCM accepts 4 to 16 in even
	// steps, CCM* additionally 0, GCM 4 to 16. Zero selects 16 for CCM and
	// GCM.
	MACLen int
	// Lengths are required by CCM and CCM*; GCM checks them when present.
	Lengths *AEADLengths
}

type aeadEngine interface {
	authenticate(aad []byte)
	finishAAD()
	crypt(dst, src []byte, decrypt bool)
	tag(out []byte)
	wipe()
}

type aeadPhase uint8

const (
	phaseAAD aeadPhase = iota
	phasePayload
	phaseDone
	phaseDestroyed
)

// AEADContext is one authenticated encryption or decryption.
//
// Decrypt releases plaintext before the tag has been checked by
// DecryptEnd. Callers must not act on that plaintext until DecryptEnd
// returns nil.
type AEADContext struct {
	key    *Key
	h      handle
	dir    Direction
	phase  aeadPhase
	eng    aeadEngine
	macLen int

	lengths     *AEADLengths
	aadSeen     int64
	payloadSeen int64
}

// NewAEADContext begins an AEAD operation under a key created from AEAD
// parameters.
func (k *Key) NewAEADContext(dir Direction, opts AEADOptions) (*AEADContext, error) {
	if err := k.check(); err != nil {
		return nil, err
	}
	if err := k.permits(dir); err != nil {
		return nil, err
	}
	p := k.params
	if err := p.expectClass(ClassAEAD); err != nil {
		return nil, err
	}
	if opts.Lengths != nil && (opts.Lengths.AAD < 0 || opts.Lengths.Payload < 0) {
		return nil, newError(ErrBadInputLength, ErrCodeBadInputLen, "declared lengths cannot be negative")
	}

	macLen := opts.MACLen
	var eng aeadEngine
	switch p.cap.Variant {
	case VariantCCM, VariantCCMStar:
		if macLen == 0 && p.cap.Variant == VariantCCM {
			macLen = 16
		}
		if err := checkCCMTagLen(macLen, p.cap.Variant == VariantCCMStar); err != nil {
			return nil, err
		}
		if opts.Lengths == nil {
			return nil, newError(ErrBadInputLength, ErrCodeBadInputLen, "CCM requires AAD and payload lengths up front")
		}
		e, err := newCCMEngine(k.block, opts.Nonce, macLen, opts.Lengths.AAD, opts.Lengths.Payload)
		if err != nil {
			return nil, err
		}
		eng = e
	case VariantGCM:
		if macLen == 0 {
			macLen = 16
		}
		if macLen < 4 || macLen > 16 {
			return nil, newError(ErrBadMACLen, ErrCodeBadMACLen, fmt.Sprintf("GCM tag must be 4 to 16 bytes, got %d", macLen))
		}
		if len(opts.Nonce) == 0 {
			return nil, newError(ErrBadNonceLen, ErrCodeBadNonceLen, "GCM nonce cannot be empty")
		}
		eng = newGCMEngine(k.block, opts.Nonce, macLen)
	default:
		return nil, newError(ErrNotSupported, ErrCodeNotSupported, "unknown AEAD construction "+p.cap.Variant.String())
	}

	h, err := p.gc.arena.acquire(kindContext, k.h)
	if err != nil {
		eng.wipe()
		return nil, err
	}
	c := &AEADContext{key: k, h: h, dir: dir, eng: eng, macLen: macLen}
	if opts.Lengths != nil {
		l := *opts.Lengths
		c.lengths = &l
	}
	return c, nil
}

func checkCCMTagLen(n int, star bool) error {
	if star && n == 0 {
		return nil
	}
	if n < 4 || n > 16 || n%2 != 0 {
		return newError(ErrBadMACLen, ErrCodeBadMACLen, fmt.Sprintf("CCM tag must be 4 to 16 even bytes, got %d", n))
	}
	return nil
}

func (c *AEADContext) check() error {
	if c == nil {
		return newError(ErrNullContext, ErrCodeNullContext, "aead context is nil")
	}
	if err := c.key.params.gc.check(); err != nil {
		return err
	}
	switch c.phase {
	case phaseDone:
		return newError(ErrBadState, ErrCodeBadState, "aead context has ended")
	case phaseDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "aead context has been destroyed")
	}
	if !c.key.params.gc.arena.valid(c.h, kindContext) {
		return newError(ErrBadContext, ErrCodeBadContext, "aead context is no longer valid")
	}
	return nil
}

// MACLen returns the tag length of the operation.
func (c *AEADContext) MACLen() int { return c.macLen }

// Authenticate absorbs additional authenticated data. It must precede all
// payload.
func (c *AEADContext) Authenticate(aad []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.phase != phaseAAD {
		return newError(ErrBadState, ErrCodeBadState, "additional data must precede the payload")
	}
	if c.lengths != nil && c.aadSeen+int64(len(aad)) > c.lengths.AAD {
		return newError(ErrBadInputLength, ErrCodeBadInputLen, "additional data exceeds declared length")
	}
	c.aadSeen += int64(len(aad))
	c.eng.authenticate(aad)
	return nil
}

// closeAAD moves to the payload phase, checking the declared AAD length.
func (c *AEADContext) closeAAD() error {
	if c.phase != phaseAAD {
		return nil
	}
	if c.lengths != nil && c.aadSeen != c.lengths.AAD {
		return newError(ErrBadInputLength, ErrCodeBadInputLen,
			fmt.Sprintf("received %d bytes of additional data, %d declared", c.aadSeen, c.lengths.AAD))
	}
	c.eng.finishAAD()
	c.phase = phasePayload
	return nil
}

func (c *AEADContext) payload(dst, src []byte, dir Direction) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	if c.dir != dir {
		return 0, newError(ErrBadState, ErrCodeBadState, "context was created for "+c.dir.String())
	}
	if c.lengths != nil && c.payloadSeen+int64(len(src)) > c.lengths.Payload {
		return 0, newError(ErrBadInputLength, ErrCodeBadInputLen, "payload exceeds declared length")
	}
	return sized(dst, len(src), func(out []byte) (int, error) {
		if err := c.closeAAD(); err != nil {
			return 0, err
		}
		c.payloadSeen += int64(len(src))
		c.eng.crypt(out, src, dir == Decrypt)
		return len(src), nil
	})
}

// Encrypt encrypts a chunk of payload. dst follows the sizing convention
// and receives exactly len(src) bytes.
func (c *AEADContext) Encrypt(dst, src []byte) (int, error) {
	return c.payload(dst, src, Encrypt)
}

// Decrypt decrypts a chunk of payload. The plaintext is unauthenticated
// until DecryptEnd succeeds.
func (c *AEADContext) Decrypt(dst, src []byte) (int, error) {
	return c.payload(dst, src, Decrypt)
}

func (c *AEADContext) finish(dir Direction) error {
	if c.dir != dir {
		return newError(ErrBadState, ErrCodeBadState, "context was created for "+c.dir.String())
	}
	if err := c.closeAAD(); err != nil {
		return err
	}
	if c.lengths != nil && c.payloadSeen != c.lengths.Payload {
		return newError(ErrBadInputLength, ErrCodeBadInputLen,
			fmt.Sprintf("received %d bytes of payload, %d declared", c.payloadSeen, c.lengths.Payload))
	}
	return nil
}

func (c *AEADContext) done() error {
	if err := c.key.params.gc.arena.release(c.h, kindContext); err != nil {
		return err
	}
	c.phase = phaseDone
	return nil
}

// EncryptEnd writes the tag and ends the operation.
func (c *AEADContext) EncryptEnd(dst []byte) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return sized(dst, c.macLen, func(out []byte) (int, error) {
		if err := c.finish(Encrypt); err != nil {
			return 0, err
		}
		c.eng.tag(out)
		if err := c.done(); err != nil {
			return 0, err
		}
		c.eng.wipe()
		return c.macLen, nil
	})
}

// DecryptEnd checks mac against the computed tag and ends the operation.
// A mismatch is reported as ErrMACInvalid.
func (c *AEADContext) DecryptEnd(mac []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	if len(mac) != c.macLen {
		return newError(ErrBadMACLen, ErrCodeBadMACLen, fmt.Sprintf("expected a %d byte tag, got %d", c.macLen, len(mac)))
	}
	if err := c.finish(Decrypt); err != nil {
		return err
	}
	expected := make([]byte, c.macLen)
	c.eng.tag(expected)
	ok := c.key.params.gc.equal(expected, mac)
	Zeroize(expected)
	if err := c.done(); err != nil {
		return err
	}
	c.eng.wipe()
	if !ok {
		return newError(ErrMACInvalid, ErrCodeMACInvalid, "authentication tag mismatch")
	}
	return nil
}

// Destroy releases the context. Destroying a nil context is a no-op.
func (c *AEADContext) Destroy() error {
	if c == nil {
		return nil
	}
	switch c.phase {
	case phaseDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "aead context already destroyed")
	case phaseAAD, phasePayload:
		if err := c.key.params.gc.arena.release(c.h, kindContext); err != nil {
			return err
		}
	}
	c.eng.wipe()
	c.phase = phaseDestroyed
	return nil
}

// AuthenticateEncryptMsg encrypts plaintext and authenticates aad in one
// call, returning ciphertext and tag.
func (k *Key) AuthenticateEncryptMsg(opts AEADOptions, aad, plaintext []byte) (ciphertext, mac []byte, err error) {
	c, err := k.NewAEADContext(Encrypt, opts)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = c.Destroy() }()

	if err := c.Authenticate(aad); err != nil {
		return nil, nil, err
	}
	ciphertext = make([]byte, len(plaintext))
	if _, err := c.Encrypt(ciphertext, plaintext); err != nil {
		return nil, nil, err
	}
	mac = make([]byte, c.macLen)
	if _, err := c.EncryptEnd(mac); err != nil {
		return nil, nil, err
	}
	return ciphertext, mac, nil
}

// AuthenticateDecryptMsg decrypts ciphertext and verifies mac in one call.
// On failure no plaintext is returned.
func (k *Key) AuthenticateDecryptMsg(opts AEADOptions, aad, ciphertext, mac []byte) ([]byte, error) {
	c, err := k.NewAEADContext(Decrypt, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Destroy() }()

	if err := c.Authenticate(aad); err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	if _, err := c.Decrypt(plaintext, ciphertext); err != nil {
		return nil, err
	}
	if err := c.DecryptEnd(mac); err != nil {
		Zeroize(plaintext)
		return nil, err
	}
	return plaintext, nil
}
