package db

import (
	"context"

	"pot-luck/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLedger stores wallets in the wallets collection. Transfers run inside
// a session transaction so the debit and credit land together or not at all.
type MongoLedger struct {
	client  *mongo.Client
	wallets *mongo.Collection
}

func NewMongoLedger(client *mongo.Client, database *mongo.Database) *MongoLedger {
	return &MongoLedger{
		client:  client,
		wallets: database.Collection("wallets"),
	}
}

func (l *MongoLedger) Balance(ctx context.Context, account string) (int64, error) {
	var wallet models.Wallet
	err := l.wallets.FindOne(ctx, bson.M{"account": account}).Decode(&wallet)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (l *MongoLedger) Deposit(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return models.ErrAmountNotPositive
	}
	_, err := l.wallets.UpdateOne(ctx,
		bson.M{"account": account},
		bson.M{"$inc": bson.M{"balance": amount}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (l *MongoLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return models.ErrAmountNotPositive
	}

	session, err := l.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		var wallet models.Wallet
		err := l.wallets.FindOne(sessCtx, bson.M{"account": from}).Decode(&wallet)
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrInsufficientFunds
		}
		if err != nil {
			return nil, err
		}
		if wallet.Balance < amount {
			return nil, models.ErrInsufficientFunds
		}

		_, err = l.wallets.UpdateOne(sessCtx,
			bson.M{"account": from},
			bson.M{"$inc": bson.M{"balance": -amount}},
		)
		if err != nil {
			return nil, err
		}
		_, err = l.wallets.UpdateOne(sessCtx,
			bson.M{"account": to},
			bson.M{"$inc": bson.M{"balance": amount}},
			options.Update().SetUpsert(true),
		)
		return nil, err
	}

	_, err = session.WithTransaction(ctx, callback)
	return err
}
