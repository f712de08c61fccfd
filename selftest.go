// selftest.go: Known-answer tests run against the registered providers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

// SelfTestResult is the outcome of one known-answer test.
type SelfTestResult struct {
	Name    string
	Skipped bool
	Err     error
}

// Passed reports whether the test ran and matched its vector.
func (r SelfTestResult) Passed() bool { return !r.Skipped && r.Err == nil }

type selfTest struct {
	name string
	run  func(gc *GlobalContext) error
}

var selfTests = []selfTest{
	{"AES-128-CBC zero vector", katAESCBC},
	{"AES key wrap RFC 3394 4.1", katKeyWrap},
	{"AES-CCM RFC 3610 packet 1", katCCM},
	{"AES-GCM zero vector", katGCM},
	{"AES-CMAC RFC 4493 example 2", katCMAC},
	{"SHA-256 abc", katSHA256},
	{"HMAC-SHA-256 RFC 4231 case 2", katHMAC},
}

// RunSelfTests runs every known-answer test whose providers are registered
// with gc. Tests lacking a provider are reported as skipped. The returned
// error is non-nil if any test failed.
func RunSelfTests(gc *GlobalContext) ([]SelfTestResult, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	results := make([]SelfTestResult, 0, len(selfTests))
	failed := 0
	for _, t := range selfTests {
		err := t.run(gc)
		r := SelfTestResult{Name: t.name}
		switch {
		case errors.Is(err, ErrNoProvider):
			r.Skipped = true
		case err != nil:
			r.Err = err
			failed++
			gc.log.Error("self test failed", "test", t.name, "error", err)
		}
		results = append(results, r)
	}
	if failed > 0 {
		return results, newError(ErrProviderFault, ErrCodeProvider, fmt.Sprintf("%d self tests failed", failed))
	}
	return results, nil
}

func unhex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func expect(got, want []byte) error {
	if !bytes.Equal(got, want) {
		return fmt.Errorf("got %x, want %x", got, want)
	}
	return nil
}

// withKey creates params via mk, imports key and hands the key to fn,
// releasing everything afterwards.
func withKey(mk func() (*Params, error), key []byte, fn func(k *Key) error) error {
	p, err := mk()
	if err != nil {
		return err
	}
	defer func() { _ = p.Destroy() }()
	k, err := p.ImportKey(len(key)*8, key, nil)
	if err != nil {
		return err
	}
	defer func() { _ = k.Destroy() }()
	return fn(k)
}

func katAESCBC(gc *GlobalContext) error {
	mk := func() (*Params, error) { return gc.CreateBlockCipherParams(AlgAES, ModeCBC, 16, nil) }
	return withKey(mk, make([]byte, 16), func(k *Key) error {
		c, err := k.NewCipherContext(Encrypt, make([]byte, 16))
		if err != nil {
			return err
		}
		defer func() { _ = c.Destroy() }()
		out, err := c.UpdateAlloc(make([]byte, 16))
		if err != nil {
			return err
		}
		if err := c.End(); err != nil {
			return err
		}
		return expect(out, unhex("66e94bd4ef8a2c3b884cfa59ca342b2e"))
	})
}

func katKeyWrap(gc *GlobalContext) error {
	mk := func() (*Params, error) { return gc.CreateBlockCipherParams(AlgAES, ModeKeyWrap, 16, nil) }
	return withKey(mk, unhex("000102030405060708090A0B0C0D0E0F"), func(k *Key) error {
		out, err := k.WrapAlloc(unhex("00112233445566778899AABBCCDDEEFF"), nil)
		if err != nil {
			return err
		}
		return expect(out, unhex("1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5"))
	})
}

func katCCM(gc *GlobalContext) error {
	mk := func() (*Params, error) { return gc.CreateAEADParams(AlgAES, VariantCCM, nil) }
	return withKey(mk, unhex("C0C1C2C3C4C5C6C7C8C9CACBCCCDCECF"), func(k *Key) error {
		aad := unhex("0001020304050607")
		pt := unhex("08090A0B0C0D0E0F101112131415161718191A1B1C1D1E")
		opts := AEADOptions{
			Nonce:   unhex("00000003020100A0A1A2A3A4A5"),
			MACLen:  8,
			Lengths: &AEADLengths{AAD: int64(len(aad)), Payload: int64(len(pt))},
		}
		ct, tag, err := k.AuthenticateEncryptMsg(opts, aad, pt)
		if err != nil {
			return err
		}
		if err := expect(ct, unhex("588C979A61C663D2F066D0C2C0F989806D5F6B61DAC384")); err != nil {
			return err
		}
		return expect(tag, unhex("17E8D12CFDF926E0"))
	})
}

func katGCM(gc *GlobalContext) error {
	mk := func() (*Params, error) { return gc.CreateAEADParams(AlgAES, VariantGCM, nil) }
	return withKey(mk, make([]byte, 16), func(k *Key) error {
		ct, tag, err := k.AuthenticateEncryptMsg(AEADOptions{Nonce: make([]byte, 12)}, nil, make([]byte, 16))
		if err != nil {
			return err
		}
		if err := expect(ct, unhex("0388dace60b6a392f328c2b971b2fe78")); err != nil {
			return err
		}
		return expect(tag, unhex("ab6e47d42cec13bdf53a67b21257bddf"))
	})
}

func katCMAC(gc *GlobalContext) error {
	mk := func() (*Params, error) { return gc.CreateMACParams(AlgAES, VariantCMAC, nil) }
	return withKey(mk, unhex("2b7e151628aed2a6abf7158809cf4f3c"), func(k *Key) error {
		tag, err := k.MAC(unhex("6bc1bee22e409f96e93d7e117393172a"))
		if err != nil {
			return err
		}
		return expect(tag, unhex("070a16b46b4d4144f79bdd9dd04a287c"))
	})
}

func katSHA256(gc *GlobalContext) error {
	p, err := gc.CreateDigestParams(AlgSHA256, nil)
	if err != nil {
		return err
	}
	defer func() { _ = p.Destroy() }()
	sum, err := p.Digest([]byte("abc"))
	if err != nil {
		return err
	}
	return expect(sum, unhex("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"))
}

func katHMAC(gc *GlobalContext) error {
	mk := func() (*Params, error) { return gc.CreateMACParams(AlgSHA256, VariantHMAC, nil) }
	return withKey(mk, []byte("Jefe"), func(k *Key) error {
		tag, err := k.MAC([]byte("what do ya want for nothing?"))
		if err != nil {
			return err
		}
		return expect(tag, unhex("5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"))
	})
}
