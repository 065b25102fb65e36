// Package config provides the configuration of claimbot: store file paths,
// remote API settings, loop delays, captcha settings and report preferences.
package config
