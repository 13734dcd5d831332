// CLAUDE:SUMMARY Blocks configured resource types (images, fonts, media) on Rod pages; stylesheets always pass.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockSet normalises the configured resource types. Stylesheets are
// dropped from the set: measuring them is the point.
func blockSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || t == "stylesheet" || t == "stylesheets" {
			continue
		}
		set[t] = true
	}
	return set
}

// applyResourceBlocking intercepts requests and fails the blocked types.
func applyResourceBlocking(page *rod.Page, set map[string]bool) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(set, string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func shouldBlock(set map[string]bool, resType string) bool {
	switch lower := strings.ToLower(resType); lower {
	case "stylesheet":
		return false
	case "image":
		return set["images"] || set["image"]
	case "font":
		return set["fonts"] || set["font"]
	case "media":
		return set["media"]
	default:
		return set[lower]
	}
}
