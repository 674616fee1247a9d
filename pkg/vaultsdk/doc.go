// Package vaultsdk is a Go client for the strongbox vault API.
//
// Anonymous operations live on Client; everything that needs a signed-in
// user lives on Session, which Client.VerifyOTP returns:
//
//	c := vaultsdk.NewClient("http://localhost:8080")
//	_ = c.Login(ctx, "alice@example.com", "correct horse")
//	sess, _ := c.VerifyOTP(ctx, "alice@example.com", code)
//	up, _ := sess.Upload(ctx, "report.pdf", "application/pdf", data, "secret123")
//	body, _, _ := sess.Download(ctx, up.FileID, "")
//
// Errors returned by the server come back as *APIError and can be matched
// with errors.Is against the predefined values (ErrForbidden, ErrNotFound, ...).
package vaultsdk
