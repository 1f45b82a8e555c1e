// Package signal flags methods whose string constants or platform calls
// suggest security-relevant behavior, and the methods around them.
package signal

import (
	"math"
	"regexp"
	"strings"
)

// Categories.
const (
	CatURL        = "url"
	CatHost       = "host"
	CatEncryption = "encryption"
	CatAuth       = "auth"
	CatNet        = "net"
	CatFile       = "file"
	CatBase64Key  = "base64"
	CatSIM        = "sim"
	CatSMS        = "sms"
	CatContacts   = "contacts"
	CatLocation   = "location"
	CatDeviceInfo = "device"
	CatCamera     = "camera"
	CatWebView    = "webview"
	CatReflection = "reflection" // class loading, reflective calls
	CatExec       = "exec"       // process execution, native loading
)

// matcher matches a category by normalized substring or by regexp.
type matcher struct {
	cat      string
	keywords []string // lowercase, no separators; see normalize
	re       *regexp.Regexp
}

// Word-boundary regexps guard the short tokens that would otherwise
// match inside identifiers ("rsa" in "Traversal").
var matchers = []matcher{
	{cat: CatEncryption,
		keywords: []string{"encrypt", "decrypt", "cipher", "pbkdf", "bcrypt", "scrypt", "hmacsha", "chacha", "digest", "nonce", "keyspec", "secretkey"},
		re:       regexp.MustCompile(`(?i)(^|[^a-zA-Z])(aes|rsa|ecdsa|hmac|sha1|sha256|sha512|md5|cbc|ecb|gcm|pkcs\d*|rc4|3des|salt|iv)([^a-zA-Z]|$)`)},
	{cat: CatAuth,
		re: regexp.MustCompile(`(?i)(^|[^a-zA-Z])(oauth|jwt|bearer|credential|passwd|password|apikey|api_key|authorization|token|secret|login)([^a-zA-Z]|$)`)},
	{cat: CatSIM,
		keywords: []string{"imei", "imsi", "telephony", "subscriberid", "getline1number", "simoperator", "simcountryiso", "simserial"}},
	{cat: CatSMS,
		keywords: []string{"smsmanager", "sendtextmessage", "content://sms"},
		re:       regexp.MustCompile(`(?i)(^|[^a-zA-Z])(sms|mms)([^a-zA-Z]|$)`)},
	{cat: CatContacts,
		keywords: []string{"contactscontract", "content://contacts", "calllog", "readcontacts", "phonenumber"}},
	{cat: CatLocation,
		keywords: []string{"latitude", "longitude", "geofence", "lastknownlocation", "fusedlocation", "locationmanager", "requestlocationupdates", "accessfinelocation"},
		re:       regexp.MustCompile(`(?i)(^|[^a-zA-Z])(gps)([^a-zA-Z]|$)`)},
	{cat: CatDeviceInfo,
		keywords: []string{"androidid", "deviceid", "getinstalledpackages", "getinstalledapplications", "ro.build.", "ro.product.", "fingerprint"}},
	{cat: CatCamera,
		keywords: []string{"camera", "takepicture", "mediarecorder"}},
	{cat: CatWebView,
		keywords: []string{"loadurl", "evaluatejavascript", "addjavascriptinterface", "webviewclient", "webchromeclient", "shouldoverrideurlloading", "cookiemanager"},
		re:       regexp.MustCompile(`(?i)(^|[^a-zA-Z])(webview|javascript:)`)},
	{cat: CatReflection,
		keywords: []string{"dexclassloader", "pathclassloader", "inmemorydexclassloader", "forname", "getdeclaredmethod", "setaccessible"}},
	{cat: CatExec,
		keywords: []string{"/system/bin/", "/system/xbin/", "runtime.exec", "processbuilder", "loadlibrary"}},
}

var (
	reURL       = regexp.MustCompile(`(?i)(https?|wss?|ftp)://`)
	reIPLiteral = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	reBase64    = regexp.MustCompile(`^[A-Za-z0-9+/=]{16,}$`)

	httpMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
	netKeywords = []string{"socket", "connect", "dns", "proxy", "redirect", "useragent"}
	extensions  = []string{".dex", ".jar", ".so", ".apk", ".zip", ".db", ".sqlite", ".pem", ".crt", ".p12", ".jks", ".bks", ".js"}
)

// ClassifyString returns the categories a string constant matches, in
// declaration order, or nil.
func ClassifyString(value string) []string {
	if len(value) < 2 {
		return nil
	}
	var cats []string
	if reURL.MatchString(value) {
		cats = append(cats, CatURL)
	}
	if reIPLiteral.MatchString(value) {
		cats = append(cats, CatHost)
	}
	norm := normalize(value)
	lower := strings.ToLower(value)
	if isHTTPMethod(value) || containsAny(lower, netKeywords) {
		cats = append(cats, CatNet)
	}
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			cats = append(cats, CatFile)
			break
		}
	}
	trimmed := strings.TrimSpace(value)
	if reBase64.MatchString(trimmed) && entropy(trimmed) > 3.5 && !isCamelCase(trimmed) {
		cats = append(cats, CatBase64Key)
	}
	for _, m := range matchers {
		if containsAny(norm, m.keywords) || (m.re != nil && m.re.MatchString(value)) {
			cats = append(cats, m.cat)
		}
	}
	return cats
}

// apiCategories maps platform class prefixes, in Java form, to the
// category a call into them signals. Longer prefixes come first.
var apiCategories = []struct {
	prefix string
	cat    string
}{
	{"android.telephony.SmsManager", CatSMS},
	{"android.telephony.", CatSIM},
	{"android.provider.ContactsContract", CatContacts},
	{"android.provider.Settings$Secure", CatDeviceInfo},
	{"android.location.", CatLocation},
	{"com.google.android.gms.location.", CatLocation},
	{"android.hardware.camera2.", CatCamera},
	{"android.hardware.Camera", CatCamera},
	{"android.webkit.", CatWebView},
	{"javax.crypto.", CatEncryption},
	{"java.security.", CatEncryption},
	{"java.net.", CatNet},
	{"javax.net.", CatNet},
	{"okhttp3.", CatNet},
	{"dalvik.system.", CatReflection},
	{"java.lang.reflect.", CatReflection},
	{"java.lang.ClassLoader", CatReflection},
	{"java.lang.Runtime", CatExec},
	{"java.lang.ProcessBuilder", CatExec},
	{"android.content.pm.PackageManager", CatDeviceInfo},
}

// ClassifyCallee returns the category of a call into owner, or "".
func ClassifyCallee(owner string) string {
	for _, a := range apiCategories {
		if strings.HasPrefix(owner, a.prefix) {
			return a.cat
		}
	}
	return ""
}

// Severity levels.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// CategorySeverity returns the severity of a category.
func CategorySeverity(cat string) string {
	switch cat {
	case CatEncryption, CatAuth, CatSIM, CatSMS, CatContacts, CatReflection, CatExec, CatWebView:
		return SeverityHigh
	case CatURL, CatHost, CatBase64Key, CatLocation, CatDeviceInfo, CatCamera:
		return SeverityMedium
	}
	return SeverityLow
}

// MaxSeverity returns the highest severity among categories.
func MaxSeverity(categories []string) string {
	best := SeverityLow
	for _, c := range categories {
		switch CategorySeverity(c) {
		case SeverityHigh:
			return SeverityHigh
		case SeverityMedium:
			best = SeverityMedium
		}
	}
	return best
}

func isHTTPMethod(s string) bool {
	for _, m := range httpMethods {
		if s == m {
			return true
		}
	}
	return false
}

// isCamelCase reports a lowercase-to-uppercase transition, which marks
// identifiers that happen to use the base64 alphabet.
func isCamelCase(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= 'a' && s[i-1] <= 'z' && s[i] >= 'A' && s[i] <= 'Z' {
			return true
		}
	}
	return false
}

// normalize lowercases s and drops '_', '-' and spaces so that
// "getLine1Number", "get_line1_number" and "get line1 number" compare
// equal against "getline1number".
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// entropy is the Shannon entropy of s in bits per byte.
func entropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	n := float64(len(s))
	var ent float64
	for _, c := range freq {
		if c > 0 {
			p := float64(c) / n
			ent -= p * math.Log2(p)
		}
	}
	return ent
}
