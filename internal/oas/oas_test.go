package oas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/molino-storefront/internal/domain/money"
)

func TestError_Encode(t *testing.T) {
	tests := []struct {
		name string
		in   Error
		want string
	}{
		{name: "plain", in: Error{Error: "boom"}, want: `{"error":"boom"}`},
		{name: "hint", in: Error{Error: "declined", Message: "try another card"}, want: `{"error":"declined","message":"try another card"}`},
		{name: "fallback", in: Error{Error: "x", Fallback: "sorry"}, want: `{"error":"x","fallback":"sorry"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(Marshal(tt.in)))
		})
	}
}

func TestCartItem_Decode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    CartItem
		wantErr bool
	}{
		{
			name:  "image alias and string price",
			input: `{"id":"v1","name":"Tamal","price":"350","quantity":"2","imageUrl":"/a.jpg","extra":{"x":1}}`,
			want:  CartItem{ID: "v1", Name: "Tamal", Price: money.New(350, "").Amount, Quantity: 2, Image: "/a.jpg"},
		},
		{
			name:  "nulls",
			input: `{"id":"v1","name":null,"price":100,"quantity":null,"image":null}`,
			want:  CartItem{ID: "v1", Price: money.New(100, "").Amount},
		},
		{name: "quantity not a number", input: `{"id":"v1","quantity":"two"}`, wantErr: true},
		{name: "not an object", input: `[1]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got CartItem
			err := Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.ID, got.ID)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.True(t, tt.want.Price.Equal(got.Price), "price %s", got.Price)
			assert.Equal(t, tt.want.Quantity, got.Quantity)
			assert.Equal(t, tt.want.Image, got.Image)
		})
	}
}

func TestCart_Encode(t *testing.T) {
	c := Cart{
		Items: []CartItem{{
			ID: "v1", Name: "Tamal", VariationName: "Pork",
			Price: money.New(350, "USD").Amount, Currency: "USD", Quantity: 2,
		}},
		ItemCount: 2,
		Subtotal:  money.New(700, "USD"),
	}
	assert.JSONEq(t, `{
		"items":[{"id":"v1","name":"Tamal","variationName":"Pork","price":350,"currency":"USD","quantity":2}],
		"itemCount":2,"subtotal":700,"currency":"USD","subtotalDisplay":"$7.00"
	}`, string(Marshal(c)))
}

func TestOrderDetails_Decode(t *testing.T) {
	input := `{
		"items":[{"id":"v1","name":"Tamal","variationName":"Pork","quantity":2,"price":350}],
		"customer":{"firstName":"Ana","lastName":"Lopez","email":"ana@example.com","phone":"5551234567"},
		"pickup":{"type":"SCHEDULED","time":"2024-05-01T15:00:00Z"},
		"pickupNotes":"extra salsa"
	}`
	var got OrderDetails
	require.NoError(t, Unmarshal([]byte(input), &got))

	require.Len(t, got.Items, 1)
	assert.Equal(t, "v1", got.Items[0].ID)
	assert.Equal(t, "Pork", got.Items[0].VariationName)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, "350", got.Items[0].Price.Amount.String())
	assert.Equal(t, Customer{FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com", Phone: "5551234567"}, got.Customer)
	assert.Equal(t, Pickup{Type: "SCHEDULED", Time: "2024-05-01T15:00:00Z"}, got.Pickup)
	assert.Equal(t, "extra salsa", got.PickupNotes)
}

func TestOrderDetails_DecodeNulls(t *testing.T) {
	var got OrderDetails
	require.NoError(t, Unmarshal([]byte(`{"items":null,"customer":null,"pickup":null}`), &got))
	assert.Empty(t, got.Items)
	assert.Equal(t, Customer{}, got.Customer)

	var empty CheckoutRequest
	require.NoError(t, Unmarshal(nil, &empty))
	assert.Equal(t, CheckoutRequest{}, empty)
}

func TestCheckoutRequest_Decode(t *testing.T) {
	var got CheckoutRequest
	input := `{"orderDetails":{"items":[{"id":"v1","quantity":1}]},"paymentDetails":{"sourceId":"cnon:1","amount":999}}`
	require.NoError(t, Unmarshal([]byte(input), &got))
	assert.Equal(t, "cnon:1", got.SourceID)
	require.Len(t, got.OrderDetails.Items, 1)
}

func TestReceipt_Encode(t *testing.T) {
	r := Receipt{
		PaymentID: "p1", Status: "COMPLETED", OrderID: "o1",
		Amount: money.New(1250, "USD"), OrderState: "OPEN",
	}
	assert.JSONEq(t, `{
		"paymentId":"p1","status":"COMPLETED","orderId":"o1","receiptUrl":null,
		"amount":1250,"currency":"USD","cardDetails":null,
		"orderState":"OPEN","orderCompleted":false
	}`, string(Marshal(r)))
}

func TestPaymentDetails_Encode(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CDT", -5*3600))
	p := PaymentDetails{
		PaymentID: "p1", Status: "APPROVED", Amount: money.New(500, "USD"),
		CreatedAt: at, Card: &Card{Brand: "AMEX", Last4: "0005"},
	}
	assert.JSONEq(t, `{
		"paymentId":"p1","orderId":null,"status":"APPROVED","amount":500,"currency":"USD",
		"receiptUrl":null,"createdAt":"2024-05-01T15:00:00Z",
		"cardDetails":{"brand":"AMEX","last4":"0005"},"orderDetails":null
	}`, string(Marshal(p)))
}

func TestChatView_Decode(t *testing.T) {
	var v ChatView
	require.NoError(t, Unmarshal([]byte(`{"isMinimized":true}`), &v))
	assert.False(t, v.OpenSet)
	assert.True(t, v.MinimizedSet)
	assert.True(t, v.Minimized)

	require.Error(t, Unmarshal([]byte(`{"isOpen":"yes"}`), &v))
}

func TestSendMessage_Decode(t *testing.T) {
	var m SendMessage
	require.NoError(t, Unmarshal([]byte(`{"conversationId":"c1","message":"hola"}`), &m))
	assert.Equal(t, SendMessage{ConversationID: "c1", Message: "hola"}, m)
	assert.JSONEq(t, `{"response":"hi"}`, string(Marshal(Reply{Response: "hi"})))
	assert.JSONEq(t, `{"conversationId":"c1"}`, string(Marshal(Conversation{ConversationID: "c1"})))
}
