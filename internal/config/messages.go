// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package config

// MessagesConfig holds every player-facing text. Operators localize by
// overriding these in the config file; the defaults are English. Entries
// marked %s are formatted with fmt.Sprintf.
type MessagesConfig struct {
	RegisterPrompt   string `koanf:"register-prompt"`
	RegisterSuccess  string `koanf:"register-success"`
	PasswordTooShort string `koanf:"password-too-short"` // %d = minimum
	PasswordTooLong  string `koanf:"password-too-long"`  // %d = maximum

	LoginPrompt      string `koanf:"login-prompt"`
	WrongPassword    string `koanf:"wrong-password"`
	AttemptLimitKick string `koanf:"attempt-limit-kick"`
	LoginSuccess     string `koanf:"login-success"`

	TimeoutKick     string `koanf:"timeout-kick"`
	NamePatternKick string `koanf:"name-pattern-kick"`
	NameCaseKick    string `koanf:"name-case-kick"` // %s = registered name
	IPLimitKick     string `koanf:"ip-limit-kick"`
	StoreErrorKick  string `koanf:"store-error-kick"`

	LinkPrompt    string `koanf:"link-prompt"` // %s = link type
	LinkCodeWrong string `koanf:"link-code-wrong"`
	LinkSuccess   string `koanf:"link-success"` // %s = link type
	LinkSendError string `koanf:"link-send-error"`

	TOTPPrompt string `koanf:"totp-prompt"`
	TOTPWrong  string `koanf:"totp-wrong"`

	Welcome        string `koanf:"welcome"`
	SessionResumed string `koanf:"session-resumed"`

	CommandBlocked string `koanf:"command-blocked"`
	ProgressBar    string `koanf:"progress-bar"` // %d = seconds remaining
}

// DefaultMessages returns the built-in English texts.
func DefaultMessages() MessagesConfig {
	return MessagesConfig{
		RegisterPrompt:   "Register with /register <password> or type your new password in chat.",
		RegisterSuccess:  "Registration complete.",
		PasswordTooShort: "Password is too short, minimum %d characters.",
		PasswordTooLong:  "Password is too long, maximum %d characters.",

		LoginPrompt:      "Log in with /login <password> or type your password in chat.",
		WrongPassword:    "Wrong password.",
		AttemptLimitKick: "Too many wrong passwords.",
		LoginSuccess:     "Logged in.",

		TimeoutKick:     "Time's up, authenticate faster next time.",
		NamePatternKick: "Your nickname contains forbidden characters.",
		NameCaseKick:    "Your nickname is registered as %s, reconnect with exact spelling.",
		IPLimitKick:     "Too many connections from your address.",
		StoreErrorKick:  "Authentication service unavailable, try again shortly.",

		LinkPrompt:    "Enter the confirmation code sent to your %s.",
		LinkCodeWrong: "Wrong confirmation code.",
		LinkSuccess:   "%s confirmed.",
		LinkSendError: "Could not deliver your confirmation code, try again.",

		TOTPPrompt: "Enter your one-time code.",
		TOTPWrong:  "Wrong one-time code.",

		Welcome:        "Authentication complete, welcome!",
		SessionResumed: "Session resumed, welcome back.",

		CommandBlocked: "You cannot use this command yet.",
		ProgressBar:    "Authentication: %d seconds remaining.",
	}
}
