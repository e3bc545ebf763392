package util

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"regexp"
)

var mobilePhone = regexp.MustCompile(`^1[3-9]\d{9}$`)

// IsMobilePhone reports whether phone is a mainland mobile number
func IsMobilePhone(phone string) bool {
	return mobilePhone.MatchString(phone)
}

// ValidatePassword returns a message describing why password is rejected, or "".
func ValidatePassword(password string) string {
	if len(password) < 6 || len(password) > 20 {
		return "password must be 6 to 20 characters"
	}
	return ""
}

// UploadSignature is the signature the upload service sends back with a finished
// video: hex(md5(videoID + "&" + secret)).
func UploadSignature(videoID, secret string) string {
	sum := md5.Sum([]byte(videoID + "&" + secret))
	return hex.EncodeToString(sum[:])
}

// ValidUploadSignature compares sig against the expected signature in constant time
func ValidUploadSignature(videoID, secret, sig string) bool {
	if secret == "" || sig == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(UploadSignature(videoID, secret)), []byte(sig)) == 1
}
