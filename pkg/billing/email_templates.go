package billing

import "fmt"

// buildPurchaseReceiptEmail returns the email content for a completed one-time model purchase.
func buildPurchaseReceiptEmail(userName, modelURL, baseURL string) (subject, html, plainText string) {
	subject = "Your ModelForge model is ready to download"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Purchase Complete!</h2>
			<p>Hi %s,</p>
			<p>Thanks for your purchase. Your print-ready model is available here:</p>
			<p><a href="%s" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Download Model</a></p>
			<p>You can also find it in your library at any time:</p>
			<p><a href="%s/library">%s/library</a></p>
			<p>Happy printing,<br>The ModelForge Team</p>
		</body>
		</html>
	`, userName, modelURL, baseURL, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

Thanks for your purchase. Your print-ready model is available here:

%s

You can also find it in your library at any time: %s/library

Happy printing,
The ModelForge Team
`, userName, modelURL, baseURL)

	return
}

// buildSubscriptionActivatedEmail returns the email content for a newly activated subscription.
func buildSubscriptionActivatedEmail(userName, tier, baseURL string) (subject, html, plainText string) {
	subject = "Your ModelForge subscription has been activated"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Subscription Activated!</h2>
			<p>Hi %s,</p>
			<p>Your <strong>%s</strong> subscription is now active. Here's what you get:</p>
			<ul>
				<li>Print-ready STL downloads</li>
				<li>Priority generation queue</li>
				<li>Priority support</li>
			</ul>
			<p><a href="%s/studio" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Open the Studio</a></p>
			<p>Happy printing,<br>The ModelForge Team</p>
		</body>
		</html>
	`, userName, tier, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

Your %s subscription is now active. Here's what you get:

- Print-ready STL downloads
- Priority generation queue
- Priority support

Open the studio: %s/studio

Happy printing,
The ModelForge Team
`, userName, tier, baseURL)

	return
}

// buildSubscriptionCancelledEmail returns the email content for a cancelled subscription.
func buildSubscriptionCancelledEmail(userName, baseURL string) (subject, html, plainText string) {
	subject = "Your ModelForge subscription has been cancelled"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Subscription Cancelled</h2>
			<p>Hi %s,</p>
			<p>We're sorry to see you go. Your subscription has been cancelled.</p>
			<p>Models you already purchased stay in your library. You can keep generating previews on the free tier and resubscribe at any time:</p>
			<p><a href="%s/pricing" style="background-color: #2196F3; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">View Plans</a></p>
			<p>If you have any feedback, we'd love to hear from you at support@modelforge.io.</p>
			<p>Thanks,<br>The ModelForge Team</p>
		</body>
		</html>
	`, userName, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

We're sorry to see you go. Your subscription has been cancelled.

Models you already purchased stay in your library. You can keep generating previews on the free tier and resubscribe at any time: %s/pricing

If you have any feedback, we'd love to hear from you at support@modelforge.io.

Thanks,
The ModelForge Team
`, userName, baseURL)

	return
}

// buildPaymentFailedEmail returns the email content for a failed subscription payment.
func buildPaymentFailedEmail(userName, baseURL string) (subject, html, plainText string) {
	subject = "Action needed: your ModelForge payment failed"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Payment Failed</h2>
			<p>Hi %s,</p>
			<p>We couldn't process your latest subscription payment. Please update your payment method to keep your downloads active:</p>
			<p><a href="%s/account/billing" style="background-color: #f44336; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Update Payment Method</a></p>
			<p>We'll retry the charge automatically over the next few days.</p>
			<p>Thanks,<br>The ModelForge Team</p>
		</body>
		</html>
	`, userName, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

We couldn't process your latest subscription payment. Please update your payment method to keep your downloads active:

%s/account/billing

We'll retry the charge automatically over the next few days.

Thanks,
The ModelForge Team
`, userName, baseURL)

	return
}
