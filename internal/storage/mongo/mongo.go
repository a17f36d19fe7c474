package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/types/coupon"
	"github.com/antonminaichev/storefront/internal/types/order"
	"github.com/antonminaichev/storefront/internal/types/user"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStorage struct {
	client  *mongo.Client
	users   *mongo.Collection
	orders  *mongo.Collection
	coupons *mongo.Collection
}

var _ storage.Storage = (*MongoStorage)(nil)

func NewMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	db := client.Database(database)
	s := &MongoStorage{
		client:  client,
		users:   db.Collection("users"),
		orders:  db.Collection("orders"),
		coupons: db.Collection("coupons"),
	}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if err := s.initIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStorage) initIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("init users index: %w", err)
	}
	if _, err := s.coupons.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("init coupons index: %w", err)
	}
	if _, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("init orders index: %w", err)
	}
	return nil
}

func (s *MongoStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return storage.ErrDuplicate
	}
	return err
}

func (s *MongoStorage) CreateUser(ctx context.Context, u *user.User) error {
	u.ID = newID()
	_, err := s.users.InsertOne(ctx, u)
	return translate(err)
}

func (s *MongoStorage) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *MongoStorage) FindUserByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *MongoStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	o.ID = newID()
	_, err := s.orders.InsertOne(ctx, o)
	return translate(err)
}

func (s *MongoStorage) FindOrderByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	if err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *MongoStorage) findOrders(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]order.Order, error) {
	cur, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []order.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStorage) ListOrdersByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return s.findOrders(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (s *MongoStorage) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	return s.findOrders(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (s *MongoStorage) updateOrder(ctx context.Context, id string, set bson.M, extra bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	update := bson.M{"$set": set}
	for k, v := range extra {
		update[k] = v
	}
	res, err := s.orders.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *MongoStorage) UpdateOrderStatus(ctx context.Context, id string, status order.OrderStatus) error {
	return s.updateOrder(ctx, id, bson.M{"status": status}, nil)
}

func (s *MongoStorage) SaveShipment(ctx context.Context, id string, sh *order.Shipment) error {
	return s.updateOrder(ctx, id, bson.M{
		"shipment_id":       sh.ShipmentID,
		"awb_code":          sh.AWBCode,
		"shipping_response": sh.Response,
		"status":            order.StatusReadyForShipping,
		"fulfillmentError":  "",
	}, nil)
}

func (s *MongoStorage) RecordFulfillmentFailure(ctx context.Context, id string, reason string) (int, error) {
	var o order.Order
	err := s.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"fulfillmentAttempts": 1},
			"$set": bson.M{"fulfillmentError": reason, "updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if err != nil {
		return 0, translate(err)
	}
	return o.FulfillmentAttempts, nil
}

func (s *MongoStorage) ListOrdersAwaitingShipment(ctx context.Context, maxAttempts int) ([]order.Order, error) {
	filter := bson.M{
		"status":              bson.M{"$in": bson.A{order.StatusPending, order.StatusPaid}},
		"shipment_id":         bson.M{"$in": bson.A{nil, ""}},
		"fulfillmentAttempts": bson.M{"$lt": maxAttempts},
	}
	return s.findOrders(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(100))
}

func (s *MongoStorage) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	c.ID = newID()
	_, err := s.coupons.InsertOne(ctx, c)
	return translate(err)
}

func (s *MongoStorage) FindActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := s.coupons.FindOne(ctx, bson.M{"code": code, "active": true}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *MongoStorage) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	cur, err := s.coupons.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []coupon.Coupon{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RedeemCoupon increments usedCount only while it is still below maxUses.
func (s *MongoStorage) RedeemCoupon(ctx context.Context, id string) error {
	res, err := s.coupons.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"active": true,
			"$expr":  bson.M{"$lt": bson.A{"$usedCount", "$maxUses"}},
		},
		bson.M{"$inc": bson.M{"usedCount": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrConditionFailed
	}
	return nil
}
