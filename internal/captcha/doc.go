// Package captcha solves Cloudflare Turnstile challenges through the
// Capsolver task API.
package captcha
