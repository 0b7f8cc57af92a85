package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nadhifgr/learnsphere/config"
	"github.com/stripe/stripe-go/v82/client"
)

func StripeMiddleware(stripeClient *client.API, cfg *config.StripeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("stripe_client", stripeClient)
		c.Set("stripe_config", cfg)
		c.Next()
	}
}

func GetStripeClient(c *gin.Context) *client.API {
	sc, exists := c.Get("stripe_client")
	if !exists {
		return nil
	}
	return sc.(*client.API)
}

func GetStripeConfig(c *gin.Context) *config.StripeConfig {
	cfg, exists := c.Get("stripe_config")
	if !exists {
		return nil
	}
	return cfg.(*config.StripeConfig)
}
