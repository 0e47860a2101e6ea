package util

import (
	"fmt"
	"strings"
)

func makeCRC16Table(poly uint16) [256]uint16 {
	var tab [256]uint16
	for i := 0; i < 256; i++ {
		var crc uint16 = uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		tab[i] = crc
	}
	return tab
}

var crc16Tab = makeCRC16Table(0x1021)

func crc16CCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		idx := byte((crc >> 8) ^ uint16(b))
		crc = (crc << 8) ^ crc16Tab[idx]
	}
	return crc
}

// Crc16String is the CRC16-CCITT (XModem) checksum of s.
func Crc16String(s string) uint16 {
	return crc16CCITT([]byte(s))
}

// EmailLocalPart returns the part of an email address before the last '@'.
func EmailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

// DerivePhoneID builds the pseudo phone identifier used for family rows that stand for a
// registered account: "<local-part>_<NNNN>". Distinct emails can collide.
func DerivePhoneID(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return fmt.Sprintf("%s_%04d", EmailLocalPart(email), Crc16String(email)%10000)
}

// AlternatePhoneID is the fallback identifier synthesized from the raw address.
func AlternatePhoneID(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return strings.NewReplacer("@", "_", ".", "_").Replace(email)
}
