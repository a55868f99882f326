package integration_test

import "fmt"

func textWebhook(platformMsgID, from, name, body string) string {
	return fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"contacts": [{"wa_id": %q, "profile": {"name": %q}}],
					"messages": [{
						"from": %q,
						"id": %q,
						"timestamp": "1756500000",
						"type": "text",
						"text": {"body": %q}
					}]
				}
			}]
		}]
	}`, from, name, from, platformMsgID, body)
}

func imageWebhook(platformMsgID, from, mediaID, caption string) string {
	return fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"messages": [{
						"from": %q,
						"id": %q,
						"timestamp": "1756500000",
						"type": "image",
						"image": {"id": %q, "mime_type": "image/jpeg", "caption": %q}
					}]
				}
			}]
		}]
	}`, from, platformMsgID, mediaID, caption)
}

func statusWebhook(platformMsgID, status, recipient string) string {
	return fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"statuses": [{
						"id": %q,
						"status": %q,
						"timestamp": "1756500060",
						"recipient_id": %q
					}]
				}
			}]
		}]
	}`, platformMsgID, status, recipient)
}

func mixedWebhook() string {
	return `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"contacts": [{"wa_id": "628700001", "profile": {"name": "Budi"}}],
					"messages": [
						{
							"from": "628700001",
							"id": "wamid.MIX1",
							"timestamp": "1756500000",
							"type": "text",
							"text": {"body": "first"}
						},
						{
							"id": "wamid.MIX2",
							"timestamp": "1756500001",
							"type": "text",
							"text": {"body": "sender missing"}
						},
						{
							"from": "628700001",
							"id": "wamid.MIX3",
							"timestamp": "1756500002",
							"type": "text",
							"text": {"body": "third"}
						}
					]
				}
			}]
		}]
	}`
}
