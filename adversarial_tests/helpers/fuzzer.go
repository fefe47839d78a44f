package helpers

import (
	"math/rand"
	"strings"
)

// Fuzzer provides utilities for generating adversarial input strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a new Fuzzer with the given seed
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// FuzzUsername generates malicious username test cases
func (f *Fuzzer) FuzzUsername() []string {
	return []string{
		// Empty and boundary cases
		"",
		"ab",
		"abc",                   // Minimum valid length
		"abcdefghijklmnopqrst",  // Maximum valid length (20 chars)
		"abcdefghijklmnopqrstu", // One char too long

		// Path traversal into other endpoints
		"../session",
		"alice/../../admin",
		"alice%2F..%2Fadmin",
		"alice?limit=1000",
		"alice#fragment",

		// Injection attempts
		"alice'; DROP TABLE--",
		"alice\" OR \"1\"=\"1",
		"<script>alert(1)</script>",

		// Control and whitespace characters
		"alice\nbob",
		"alice\r\nX-Injected: 1",
		"alice\x00",
		"alice bob",
		"\talice",

		// Unicode lookalikes
		"\u0430lice", // Cyrillic a
		"alice\u202Eevil",
		"🚀rocket",
	}
}

// FuzzUserAgent generates user agents that must not reach the wire
func (f *Fuzzer) FuzzUserAgent() []string {
	return []string{
		"agent\r\nX-Injected: true",
		"agent\nCookie: scratchsessionsid=stolen",
		"agent\r",
		strings.Repeat("A", 257),
	}
}

// FuzzCommentContent generates comment bodies around the content limits
func (f *Fuzzer) FuzzCommentContent() []string {
	return []string{
		"",
		"   ",
		"\n\t\n",
		strings.Repeat("x", 501),
		strings.Repeat("é", 501),
	}
}

// FuzzProfileHTML generates malformed profile comment pages
func (f *Fuzzer) FuzzProfileHTML() []string {
	return []string{
		"",
		"<",
		"<<<>>>",
		"not html at all",
		`<li class="top-level-reply">`,
		`<li class="top-level-reply"><div class="comment"></div></li>`,
		`<li class="top-level-reply"><div class="comment" data-comment-id="abc"></div></li>`,
		`<li class="top-level-reply"><div class="comment" data-comment-id="-1"><div class="content"></div></div></li>`,
		`<li class="top-level-reply"><div class="comment" data-comment-id="99999999999999999999"></div></li>`,
		`<li class="top-level-reply"><div class="comment" data-comment-id="1"><span class="time" title="yesterday"></span></div></li>`,
		`<li class="top-level-reply"><div class="comment" data-comment-id="1"><img class="avatar" src="javascript:alert(1)"></div></li>`,
		`<li class="top-level-reply"><ul class="replies"><li class="reply"><div class="comment" data-comment-id="2"></div></li></ul></li>`,
		`<li class="top-level-reply"><div class="comment" data-comment-id="1"><a class="reply" data-commentee-id="x"></a></div></li>`,
		strings.Repeat("<div>", 100),
		strings.Repeat(`<li class="top-level-reply"><div class="comment" data-comment-id="1">`, 200),
	}
}

// FuzzJSONBody generates response bodies that are not usable JSON objects
func (f *Fuzzer) FuzzJSONBody() []string {
	return []string{
		"",
		" ",
		"null",
		"[]",
		`"string"`,
		"42",
		"{",
		`{"id": }`,
		`{"id": 1,}`,
		"\x00\x01\x02",
		"<html>Service Unavailable</html>",
		strings.Repeat("[", 10000),
	}
}

// GenerateRandomString generates a random string of the given length
func (f *Fuzzer) GenerateRandomString(length int, includeSpecial bool) string {
	const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const special = "!@#$%^&*()_+-=[]{}|;':\",./<>?`~\\"

	charset := alphanumeric
	if includeSpecial {
		charset += special
	}

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[f.rnd.Intn(len(charset))]
	}
	return string(b)
}
