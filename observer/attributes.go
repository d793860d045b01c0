package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for kitabi spans and metrics.
var (
	AttrCloudService = attribute.Key("cloud.service")
	AttrCloudModel   = attribute.Key("cloud.model")
	AttrCloudPages   = attribute.Key("cloud.pages")
	AttrCostUSD      = attribute.Key("cloud.cost_usd")

	AttrPageStart = attribute.Key("page.start")
	AttrPageEnd   = attribute.Key("page.end")

	AttrLanguage        = attribute.Key("document.language")
	AttrMethod          = attribute.Key("document.method")
	AttrScanned         = attribute.Key("document.scanned")
	AttrStructureSource = attribute.Key("document.structure_source")

	AttrStatus = attribute.Key("status")
)
