package accounts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// maxSimilarity is the similarity ratio at which a password is rejected
// as too close to the email address.
const maxSimilarity = 0.7

// Password policy messages.
var (
	MsgPasswordTooShort = fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength)
	MsgPasswordCommon   = "This password is too common."
	MsgPasswordNumeric  = "This password is entirely numeric."
	MsgPasswordSimilar  = "The password is too similar to the email address."
)

// commonPasswords holds frequently used passwords, lower-cased.
var commonPasswords = map[string]bool{}

func init() {
	for _, p := range strings.Fields(`
		123456 password 12345678 qwerty 123456789 12345 1234 111111 1234567
		dragon 123123 baseball abc123 football monkey letmein 696969 shadow
		master 666666 qwertyuiop 123321 mustang 1234567890 michael 654321
		superman 1qaz2wsx 7777777 121212 000000 qazwsx 123qwe killer trustno1
		jordan jennifer zxcvbnm asdfgh hunter buster soccer harley batman
		andrew tigger sunshine iloveyou 2000 charlie robert thomas hockey
		ranger daniel starwars klaster 112233 george computer michelle
		jessica pepper 1111 zxcvbn 555555 11111111 131313 freedom 777777
		pass maggie 159753 aaaaaa ginger princess joshua cheese amanda
		summer love ashley nicole chelsea biteme matthew access yankees
		987654321 dallas austin thunder taylor matrix password1 password123
		welcome welcome1 admin admin123 passw0rd qwerty123 abcd1234
		changeme letmein1 iloveyou1 football1 baseball1 whatever
	`) {
		commonPasswords[p] = true
	}
}

var nonWord = regexp.MustCompile(`\W+`)

// CheckPassword applies the password policy and returns every violated
// rule. An empty result means the password is acceptable.
func CheckPassword(password, email string) []string {
	var msgs []string
	if similarToEmail(password, email) {
		msgs = append(msgs, MsgPasswordSimilar)
	}
	if len([]rune(password)) < MinPasswordLength {
		msgs = append(msgs, MsgPasswordTooShort)
	}
	if commonPasswords[strings.ToLower(strings.TrimSpace(password))] {
		msgs = append(msgs, MsgPasswordCommon)
	}
	if isNumeric(password) {
		msgs = append(msgs, MsgPasswordNumeric)
	}
	return msgs
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// similarToEmail compares the password with the whole address and with
// each word of it.
func similarToEmail(password, email string) bool {
	if email == "" || password == "" {
		return false
	}
	pw := strings.ToLower(password)
	email = strings.ToLower(email)
	parts := append(nonWord.Split(email, -1), email)
	for _, part := range parts {
		if part == "" {
			continue
		}
		if similarity(pw, part) >= maxSimilarity {
			return true
		}
	}
	return false
}

// similarity returns 2*M/T where M is the number of characters in the
// matching blocks found by recursively taking the longest common
// substring, and T the combined length.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matching(ra, rb)) / float64(total)
}

func matching(a, b []rune) int {
	i, j, n := longestCommon(a, b)
	if n == 0 {
		return 0
	}
	return n + matching(a[:i], b[:j]) + matching(a[i+n:], b[j+n:])
}

// longestCommon finds the longest common substring of a and b, returning
// its start in each and its length. Ties go to the earliest match.
func longestCommon(a, b []rune) (int, int, int) {
	bi, bj, best := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
					bi, bj = i-cur[j], j-cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bi, bj, best
}
