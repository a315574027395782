package downloader

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

const viewerTimeout = 60 * time.Second

// attachmentScript pulls the PDF link out of the viewer's download popup.
// The popup is filled in by the viewer's own scripts after page load, so it
// only exists in the rendered DOM.
const attachmentScript = `(() => {
	const links = document.querySelectorAll('a[href*="/pdf/download/"]');
	for (const a of links) {
		if (a.href.toLowerCase().includes("pdf")) return a.href;
	}
	return links.length > 0 ? links[0].href : "";
})()`

// AttachmentURL opens the filing in a headless browser and resolves the
// direct PDF attachment URL.
func (d *Downloader) AttachmentURL(ctx context.Context, disclosure Disclosure) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(d.userAgent),
			chromedp.NoSandbox,
		)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, viewerTimeout)
	defer cancelTimeout()

	var attachmentURL string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(disclosure.ViewerURL()),
		chromedp.WaitReady("body"),
		chromedp.Click(`#north button.btnDown`, chromedp.NodeVisible),
		chromedp.WaitVisible(`a[href*="/pdf/download/"]`),
		chromedp.Evaluate(attachmentScript, &attachmentURL),
	)
	if err != nil {
		return "", fmt.Errorf("resolving attachment for %s: %w", disclosure.ReceiptNo, err)
	}
	if attachmentURL == "" {
		return "", fmt.Errorf("filing %s has no PDF attachment", disclosure.ReceiptNo)
	}

	return attachmentURL, nil
}

// Download resolves the filing's PDF attachment and saves it under the
// download directory, returning the local path. Filings whose direct URL is
// session-gated fall back to an in-browser download; the browser picks the
// file name, so the fallback returns the download directory instead.
func (d *Downloader) Download(ctx context.Context, disclosure Disclosure) (string, error) {
	fileURL, err := d.AttachmentURL(ctx, disclosure)
	if err != nil {
		return "", err
	}

	path, err := d.DownloadFile(ctx, fileURL, attachmentFilename(disclosure))
	if err == nil {
		return path, nil
	}

	d.logger.Warn("direct download failed, retrying in browser",
		"receipt_no", disclosure.ReceiptNo, "error", err)
	if err := d.DownloadViaBrowser(ctx, disclosure); err != nil {
		return "", err
	}
	return d.downloadDir, nil
}

// DownloadViaBrowser downloads the attachment inside the browser session.
// Some filings gate the direct URL behind a session cookie; routing the
// download through the browser keeps the cookie jar intact.
func (d *Downloader) DownloadViaBrowser(ctx context.Context, disclosure Disclosure) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(d.userAgent),
			chromedp.NoSandbox,
		)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, viewerTimeout)
	defer cancelTimeout()

	err := chromedp.Run(browserCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(d.downloadDir).
			WithEventsEnabled(true),
		chromedp.Navigate(disclosure.ViewerURL()),
		chromedp.WaitReady("body"),
		chromedp.Click(`#north button.btnDown`, chromedp.NodeVisible),
		chromedp.WaitVisible(`a[href*="/pdf/download/"]`),
		chromedp.Click(`a[href*="/pdf/download/"]`, chromedp.NodeVisible),
		chromedp.Sleep(5*time.Second),
	)
	if err != nil {
		return fmt.Errorf("browser download for %s: %w", disclosure.ReceiptNo, err)
	}

	d.logger.Info("filing downloaded via browser",
		"receipt_no", disclosure.ReceiptNo, "dir", d.downloadDir)

	return nil
}
