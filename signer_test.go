package dsigner

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/domecloud/dsigner/adapters/custodian"
	"github.com/domecloud/dsigner/adapters/identity"
	"github.com/domecloud/dsigner/adapters/store"
	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/service"
	dhttp "github.com/domecloud/dsigner/transport/http"
)

// fakeProvider serves canned chain state for transaction population
type fakeProvider struct {
	chainID  *big.Int
	nonce    uint64
	gasPrice *big.Int
	gasTip   *big.Int
}

func (p *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) { return p.chainID, nil }
func (p *fakeProvider) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return p.nonce, nil
}
func (p *fakeProvider) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return p.gasPrice, nil
}
func (p *fakeProvider) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return p.gasTip, nil
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider, err := identity.NewLocalProvider()
	require.NoError(t, err)

	custodianClient := custodian.NewLocalCustodian()
	bindings := store.NewMemoryStore()
	logger := zap.NewNop()

	resolver := service.NewSessionResolver(provider, bindings, logger)
	provisioner := service.NewWalletProvisioner(custodianClient, bindings, nil, logger)
	gateway := service.NewSigningGateway(resolver, custodianClient, logger)
	authService := service.NewAuthService(provider, provisioner, logger)

	srv := httptest.NewServer(dhttp.SetupRouter(authService, resolver, gateway))
	t.Cleanup(srv.Close)
	return srv
}

func signedUpSigner(t *testing.T, srv *httptest.Server) *RemoteSigner {
	t.Helper()

	s := New(Config{APIURL: srv.URL})
	_, err := s.SignUp(context.Background(), "a@b.c", "hunter22")
	require.NoError(t, err)
	return s
}

func TestSignerUnboundRejectsEverything(t *testing.T) {
	s := New(Config{APIURL: "http://localhost:0"})

	_, err := s.GetAddress()
	require.ErrorIs(t, err, ErrNotSignedIn)

	_, err = s.SignMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNotSignedIn)

	_, err = s.SignTransaction(context.Background(), &core.Transaction{Nonce: core.QuantityFromUint64(0)})
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSignerSignInBindsAddress(t *testing.T) {
	srv := newBackend(t)
	s := signedUpSigner(t, srv)
	ctx := context.Background()

	user, err := s.SignIn(ctx, "a@b.c", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "a@b.c", user.Email)

	address, err := s.GetAddress()
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, address)

	t.Run("wrong password leaves binding intact", func(t *testing.T) {
		_, err := s.SignIn(ctx, "a@b.c", "wrong")
		require.Error(t, err)

		still, err := s.GetAddress()
		require.NoError(t, err)
		require.Equal(t, address, still)
	})
}

func TestSignerSignMessageRecovers(t *testing.T) {
	srv := newBackend(t)
	s := signedUpSigner(t, srv)
	ctx := context.Background()

	_, err := s.SignIn(ctx, "a@b.c", "hunter22")
	require.NoError(t, err)

	address, err := s.GetAddress()
	require.NoError(t, err)

	artifact, err := s.SignMessage(ctx, "hello dsigner")
	require.NoError(t, err)

	sig, err := hexutil.Decode(artifact)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	sig[64] -= 27

	pub, err := ethcrypto.SigToPub(accounts.TextHash([]byte("hello dsigner")), sig)
	require.NoError(t, err)
	require.Equal(t, address, ethcrypto.PubkeyToAddress(*pub))
}

func TestSignerSignTransactionWithProvider(t *testing.T) {
	srv := newBackend(t)
	s := signedUpSigner(t, srv)
	ctx := context.Background()

	_, err := s.SignIn(ctx, "a@b.c", "hunter22")
	require.NoError(t, err)

	address, err := s.GetAddress()
	require.NoError(t, err)

	s.Connect(&fakeProvider{
		chainID:  big.NewInt(137),
		nonce:    7,
		gasPrice: big.NewInt(2_000_000_000),
		gasTip:   big.NewInt(1_000_000_000),
	})

	// Nonce, chain id and fees all come from the provider.
	artifact, err := s.SignTransaction(ctx, &core.Transaction{
		To:       "0x00000000219ab540356cBB839Cbe05303d7705Fa",
		GasLimit: core.QuantityFromUint64(21000),
		Value:    core.QuantityFromUint64(1),
	})
	require.NoError(t, err)

	raw, err := hexutil.Decode(artifact)
	require.NoError(t, err)
	var signed types.Transaction
	require.NoError(t, signed.UnmarshalBinary(raw))
	require.Equal(t, uint64(7), signed.Nonce())
	require.Equal(t, uint64(137), signed.ChainId().Uint64())

	sender, err := types.Sender(types.LatestSignerForChainID(signed.ChainId()), &signed)
	require.NoError(t, err)
	require.Equal(t, address, sender)
}

func TestSignerSignTransactionWithoutProviderNeedsNonce(t *testing.T) {
	srv := newBackend(t)
	s := signedUpSigner(t, srv)
	ctx := context.Background()

	_, err := s.SignIn(ctx, "a@b.c", "hunter22")
	require.NoError(t, err)

	_, err = s.SignTransaction(ctx, &core.Transaction{Value: core.QuantityFromUint64(1)})
	require.ErrorIs(t, err, core.ErrMissingNonce)

	// With an explicit nonce the call goes through.
	_, err = s.SignTransaction(ctx, &core.Transaction{Nonce: core.QuantityFromUint64(0)})
	require.NoError(t, err)
}

func TestSignerSetAccessToken(t *testing.T) {
	srv := newBackend(t)
	s := signedUpSigner(t, srv)
	ctx := context.Background()

	// Sign in out of band to harvest a raw session token.
	payload, err := json.Marshal(map[string]string{"email": "a@b.c", "password": "hunter22"})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/auth/signin", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		User struct {
			Wallet string `json:"wallet"`
		} `json:"user"`
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	require.NoError(t, s.SetAccessToken(ctx, out.Session.AccessToken))

	address, err := s.GetAddress()
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(out.User.Wallet), address)

	artifact, err := s.SignMessage(ctx, "adopted session")
	require.NoError(t, err)
	require.NotEmpty(t, artifact)
}

func TestSignerSetAccessTokenRollsBackOnFailure(t *testing.T) {
	srv := newBackend(t)
	s := signedUpSigner(t, srv)
	ctx := context.Background()

	_, err := s.SignIn(ctx, "a@b.c", "hunter22")
	require.NoError(t, err)

	err = s.SetAccessToken(ctx, "garbage-token")
	require.ErrorIs(t, err, ErrInvalidAccessToken)

	// The signer is fully unbound, not left with the stale binding.
	_, err = s.GetAddress()
	require.ErrorIs(t, err, ErrNotSignedIn)

	_, err = s.SignMessage(ctx, "hello")
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSignerConnectReturnsSelf(t *testing.T) {
	s := New(Config{APIURL: "http://localhost:0"})
	require.Same(t, s, s.Connect(&fakeProvider{}))
}
