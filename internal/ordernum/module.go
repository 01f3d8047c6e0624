package ordernum

import "go.uber.org/fx"

// Module exposes the order number issuer to the fx container.
var Module = fx.Provide(NewIssuer)
