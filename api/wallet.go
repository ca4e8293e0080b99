package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/util"
)

// ownerFromParams reads /wallets/:owner_type/:owner_id. The platform wallet uses owner id 0.
func ownerFromParams(c *gin.Context) (db.ActorRef, error) {
	ownerType := c.Param("owner_type")
	if db.ActorType(ownerType) == db.ActorTypePlatform {
		return db.PlatformActor(), nil
	}

	ownerID, err := strconv.ParseInt(c.Param("owner_id"), 10, 64)
	if err != nil || ownerID <= 0 {
		return db.ActorRef{}, fmt.Errorf("invalid owner_id %q", c.Param("owner_id"))
	}
	return db.ParseActorRef(ownerType, &ownerID)
}

func (server *Server) getWallet(c *gin.Context) {
	owner, err := ownerFromParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	wallet, err := server.dbStore.GetWalletByOwner(c, owner)
	if err != nil {
		abortWithError(c, fmt.Errorf("wallet of %s: %w", owner, err))
		return
	}

	c.JSON(http.StatusOK, walletResponse{
		Wallet:         wallet,
		BalanceDisplay: util.FormatMoney(wallet.Balance, wallet.Currency),
	})
}

// listWalletTransactions lists the ledger entries of a wallet, oldest first.
func (server *Server) listWalletTransactions(c *gin.Context) {
	owner, err := ownerFromParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	wallet, err := server.dbStore.GetWalletByOwner(c, owner)
	if err != nil {
		abortWithError(c, fmt.Errorf("wallet of %s: %w", owner, err))
		return
	}

	transactions, err := server.dbStore.ListWalletTransactions(c, wallet.ID)
	if err != nil {
		err = fmt.Errorf("failed to list transactions of wallet %d: %w", wallet.ID, err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, transactions)
}
